package api

import (
	"fmt"
	"net/http"

	"github.com/example/goalbot/internal/orchestrator"
)

// events streams pipeline events for one goal as server-sent events until
// the client goes away.
func (s *Server) events(w http.ResponseWriter, r *http.Request) {
	g, ok := s.loadGoal(w, r)
	if !ok {
		return
	}
	hub := s.pipeline.Hub()
	if hub == nil {
		respondError(w, http.StatusServiceUnavailable, "event stream disabled")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	ch, unsubscribe := hub.Subscribe(orchestrator.GoalKey(g.ID))
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "event: connected\ndata: {}\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case data, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}
