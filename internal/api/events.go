package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/TimurManjosov/goptimize/internal/logging"
	"github.com/TimurManjosov/goptimize/internal/optimize"
	"github.com/TimurManjosov/goptimize/internal/telemetry"
)

// SSE event kinds.
const (
	streamEventInit     = "init"
	streamEventOutbound = "outbound"
)

type eventRequest struct {
	ID       string         `json:"id,omitempty"`
	Name     string         `json:"name"`
	Type     string         `json:"type"`
	Source   string         `json:"source"`
	Data     map[string]any `json:"data,omitempty"`
	ParentID string         `json:"parentId,omitempty"`
}

// handleIngest queues an inbound event. This is how network responses and errors
// reach the extension.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if !decodeBody(w, r, &req) {
		return
	}

	fields := map[string]string{}
	if strings.TrimSpace(req.Type) == "" {
		fields["type"] = "event type is required"
	}
	if strings.TrimSpace(req.Source) == "" {
		fields["source"] = "event source is required"
	}
	if len(fields) > 0 {
		ValidationError(w, r, "invalid event", fields)
		return
	}

	ev := optimize.NewEvent(req.Name, req.Type, req.Source, req.Data)
	if req.ID != "" {
		ev.ID = req.ID
	}
	ev.ParentID = req.ParentID

	if err := s.ext.Handle(ev); err != nil {
		ExtensionError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, acceptedResponse{OK: true, ID: ev.ID})
}

// handleStream streams outbound events until the client disconnects.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		InternalError(w, r, "streaming unsupported")
		return
	}

	events, unsubscribe := s.hub.Subscribe()
	defer unsubscribe()

	telemetry.SSEClients.Inc()
	defer telemetry.SSEClients.Dec()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	greeting := map[string]any{"subscribers": s.hub.Subscribers(), "connectedAt": time.Now().UTC()}
	if err := writeSSE(w, streamEventInit, "", greeting); err != nil {
		return
	}
	flusher.Flush()

	ticker := time.NewTicker(s.heartbeat)
	defer ticker.Stop()

	log := logging.Component("api")
	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case ev, open := <-events:
			if !open {
				return
			}
			if err := writeSSE(w, streamEventOutbound, ev.ID, ev); err != nil {
				log.WithError(err).WithField("id", ev.ID).Debug("stream write failed")
				return
			}
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, event, id string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if id != "" {
		if _, err := fmt.Fprintf(w, "id: %s\n", id); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	return err
}
