package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/aretw0/sakura/internal/metrics"
	"github.com/aretw0/sakura/pkg/domain"
)

// SubscribeEvents handles GET /sessions/{id}/events (SSE).
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	if s.Feed == nil {
		http.Error(w, "Event stream not configured", http.StatusNotImplemented)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.logger.Error("SubscribeEvents: streaming not supported")
		return
	}

	sessionID := chi.URLParam(r, "id")
	if !s.Sessions.Exists(sessionID) {
		s.writeError(w, r, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, sessionID))
		return
	}

	events, cancel, err := s.Feed.Subscribe(r.Context(), sessionID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer cancel()

	done := metrics.SSEConnected()
	defer done()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	s.logger.Info("SSE: subscribing to session updates", "session_id", sessionID)
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	watch := parseWatch(r.URL.Query().Get("watch"))

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("SSE client disconnected", "session_id", sessionID)
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if !watch.matches(ev) {
				continue
			}
			payload, err := json.Marshal(ev)
			if err != nil {
				s.logger.Error("SSE: event encode failed", "err", err)
				continue
			}
			name := "snapshot"
			if ev.Reset {
				name = "reset"
			}
			fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", ev.Sequence, name, payload)
			flusher.Flush()
			metrics.RecordSSEEvent()
		}
	}
}

// watchFilter keeps events touching any of the named diff fields. Empty keeps everything.
type watchFilter map[string]bool

func parseWatch(raw string) watchFilter {
	if raw == "" {
		return nil
	}
	f := watchFilter{}
	for _, field := range strings.Split(raw, ",") {
		if field = strings.TrimSpace(field); field != "" {
			f[field] = true
		}
	}
	return f
}

func (f watchFilter) matches(ev domain.SnapshotEvent) bool {
	if len(f) == 0 || ev.Reset || ev.Diff == nil || ev.Diff.Replaced {
		return true
	}
	d := ev.Diff
	switch {
	case f["files"] && (len(d.Files) > 0 || d.CurrentFile != nil):
		return true
	case f["commands"] && len(d.NewCommands) > 0:
		return true
	case f["status"] && (d.IsComplete != nil || d.Title != nil):
		return true
	}
	return false
}
