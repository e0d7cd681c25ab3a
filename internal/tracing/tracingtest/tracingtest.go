// Package tracingtest provides an in-memory tracer provider whose spans
// always record.
package tracingtest

import (
	"context"
	"sync"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

type Span struct {
	noop.Span
	Name string

	mu     sync.Mutex
	attrs  []attribute.KeyValue
	events []string
	ended  bool
}

func (s *Span) IsRecording() bool { return true }

func (s *Span) SetAttributes(kv ...attribute.KeyValue) {
	s.mu.Lock()
	s.attrs = append(s.attrs, kv...)
	s.mu.Unlock()
}

func (s *Span) AddEvent(name string, _ ...trace.EventOption) {
	s.mu.Lock()
	s.events = append(s.events, name)
	s.mu.Unlock()
}

func (s *Span) End(...trace.SpanEndOption) {
	s.mu.Lock()
	s.ended = true
	s.mu.Unlock()
}

func (s *Span) Attributes() []attribute.KeyValue {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]attribute.KeyValue(nil), s.attrs...)
}

func (s *Span) Events() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.events...)
}

func (s *Span) Ended() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ended
}

// Value returns the last value set for key.
func (s *Span) Value(key attribute.Key) (attribute.Value, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.attrs) - 1; i >= 0; i-- {
		if s.attrs[i].Key == key {
			return s.attrs[i].Value, true
		}
	}
	return attribute.Value{}, false
}

type Provider struct {
	noop.TracerProvider

	mu    sync.Mutex
	spans []*Span
}

func (p *Provider) Tracer(string, ...trace.TracerOption) trace.Tracer {
	return tracer{p: p}
}

// Spans returns the spans started so far, in start order.
func (p *Provider) Spans() []*Span {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*Span(nil), p.spans...)
}

type tracer struct {
	noop.Tracer
	p *Provider
}

func (t tracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	cfg := trace.NewSpanStartConfig(opts...)
	span := &Span{Name: name, attrs: cfg.Attributes()}
	t.p.mu.Lock()
	t.p.spans = append(t.p.spans, span)
	t.p.mu.Unlock()
	return trace.ContextWithSpan(ctx, span), span
}

// Install makes a new Provider the global tracer provider until the test
// ends.
func Install(t testing.TB) *Provider {
	p := &Provider{}
	otel.SetTracerProvider(p)
	t.Cleanup(func() { otel.SetTracerProvider(noop.NewTracerProvider()) })
	return p
}
