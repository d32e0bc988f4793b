package api

import (
	"net/http"
	"strconv"

	"github.com/ayusman/mudra/internal/store"
)

// EventHandler serves the dispatch event log.
type EventHandler struct {
	store *store.Store
}

// NewEventHandler creates an EventHandler with the given store.
func NewEventHandler(s *store.Store) *EventHandler {
	return &EventHandler{store: s}
}

type eventResponse struct {
	ID           string `json:"id"`
	Gesture      string `json:"gesture"`
	PluginName   string `json:"plugin_name"`
	CommandName  string `json:"command_name"`
	Status       string `json:"status"`
	Detail       string `json:"detail,omitempty"`
	DispatchedAt string `json:"dispatched_at"`
}

type listEventsResponse struct {
	Events []eventResponse `json:"events"`
}

// ServeHTTP handles GET /api/events?limit=N, newest first.
func (h *EventHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = parsed
	}

	events, err := h.store.Events().Recent(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list events")
		return
	}

	response := listEventsResponse{
		Events: make([]eventResponse, 0, len(events)),
	}
	for _, e := range events {
		response.Events = append(response.Events, eventResponse{
			ID:           e.ID,
			Gesture:      e.Gesture,
			PluginName:   e.PluginName,
			CommandName:  e.CommandName,
			Status:       e.Status,
			Detail:       e.Detail,
			DispatchedAt: e.DispatchedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}

	writeJSON(w, http.StatusOK, response)
}
