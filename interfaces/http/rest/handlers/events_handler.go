package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"flowsync/application/services"
	"flowsync/application/store"
	"flowsync/pkg/common"
)

// EventsHandler streams store snapshots to the UI over server-sent
// events so the rendering layer can stay a pure function of state.
type EventsHandler struct {
	sync   *services.SyncService
	logger *zap.Logger
}

func NewEventsHandler(sync *services.SyncService, logger *zap.Logger) *EventsHandler {
	return &EventsHandler{sync: sync, logger: logger}
}

// State handles GET /state
func (h *EventsHandler) State(w http.ResponseWriter, r *http.Request) {
	common.RespondJSON(w, http.StatusOK, h.sync.Snapshot())
}

// Stream handles GET /events
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// Buffered so a slow client drops intermediate snapshots instead of
	// blocking the store's notify path.
	updates := make(chan store.State, 8)
	unsubscribe := h.sync.Subscribe(func(s store.State) {
		select {
		case updates <- s:
		default:
		}
	})
	defer unsubscribe()

	send := func(s store.State) bool {
		payload, err := json.Marshal(s)
		if err != nil {
			h.logger.Warn("failed to encode state snapshot", zap.Error(err))
			return true
		}
		if _, err := fmt.Fprintf(w, "event: state\ndata: %s\n\n", payload); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}

	if !send(h.sync.Snapshot()) {
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case s := <-updates:
			if !send(s) {
				return
			}
		}
	}
}
