package llm

import (
	"context"
)

// Client produces free text for a prompt. Every stage of the pipeline talks
// to its provider through this one call; structure is parsed out of the
// returned text by the caller.
type Client interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// Describer is implemented by clients that can name their backend for logs.
type Describer interface {
	Describe() (provider, model string)
}

// Describe returns the provider and model behind c, or "unknown".
func Describe(c Client) (string, string) {
	if d, ok := c.(Describer); ok {
		return d.Describe()
	}
	return "unknown", ""
}
