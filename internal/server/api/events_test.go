package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/mudra/internal/store"
)

func TestEventHandler_List(t *testing.T) {
	s := newTestStore(t)
	handler := NewEventHandler(s)

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		err := s.Events().Insert(&store.Event{
			ID:           uuid.NewString(),
			Gesture:      "Pointing_Up",
			PluginName:   "robot-control",
			CommandName:  "hello",
			Status:       store.EventStatusDispatched,
			DispatchedAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("failed to insert event: %v", err)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/events?limit=2", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var response listEventsResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if len(response.Events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(response.Events))
	}
	if response.Events[0].Gesture != "Pointing_Up" {
		t.Errorf("expected gesture 'Pointing_Up', got %q", response.Events[0].Gesture)
	}
}

func TestEventHandler_InvalidLimit(t *testing.T) {
	s := newTestStore(t)
	handler := NewEventHandler(s)

	req := httptest.NewRequest(http.MethodGet, "/api/events?limit=abc", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}
}

func TestEventHandler_MethodNotAllowed(t *testing.T) {
	s := newTestStore(t)
	handler := NewEventHandler(s)

	req := httptest.NewRequest(http.MethodPost, "/api/events", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status %d, got %d", http.StatusMethodNotAllowed, rec.Code)
	}
}
