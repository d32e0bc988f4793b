package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"github.com/ayusman/mudra/internal/store"
)

// newTestStore creates a Store backed by a temporary database.
func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := store.New(dbPath)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestBindingHandler_List(t *testing.T) {
	s := newTestStore(t)
	handler := NewBindingHandler(s)

	binding := &store.Binding{
		ID:          "binding-1",
		Gesture:     "Thumb_Up",
		PluginName:  "robot-control",
		CommandName: "stand-up",
		Enabled:     true,
	}
	if err := s.Bindings().Create(binding); err != nil {
		t.Fatalf("failed to create binding: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/bindings", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var response listBindingsResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if len(response.Bindings) != 1 {
		t.Fatalf("expected 1 binding, got %d", len(response.Bindings))
	}
	if response.Bindings[0].ID != "binding-1" {
		t.Errorf("expected id 'binding-1', got %q", response.Bindings[0].ID)
	}
	if response.Bindings[0].Gesture != "Thumb_Up" {
		t.Errorf("expected gesture 'Thumb_Up', got %q", response.Bindings[0].Gesture)
	}
}

func TestBindingHandler_Create(t *testing.T) {
	s := newTestStore(t)
	handler := NewBindingHandler(s)

	body := bindingRequest{
		Gesture:     "Open_Palm",
		PluginName:  "robot-control",
		CommandName: "hello",
		CooldownMS:  1500,
	}
	raw, _ := json.Marshal(body)

	req := httptest.NewRequest(http.MethodPost, "/api/bindings", bytes.NewReader(raw))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}

	var created bindingResponse
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if created.ID == "" {
		t.Error("expected generated id")
	}
	if !created.Enabled {
		t.Error("expected binding enabled by default")
	}
	if created.CooldownMS != 1500 {
		t.Errorf("expected cooldown 1500, got %d", created.CooldownMS)
	}

	// Persisted in the store
	if _, err := s.Bindings().GetByGesture("Open_Palm"); err != nil {
		t.Errorf("binding not persisted: %v", err)
	}
}

func TestBindingHandler_Create_Validation(t *testing.T) {
	s := newTestStore(t)
	handler := NewBindingHandler(s)

	tests := []struct {
		name string
		body string
	}{
		{name: "invalid JSON", body: `{not json`},
		{name: "missing gesture", body: `{"plugin_name":"p","command_name":"c"}`},
		{name: "missing plugin", body: `{"gesture":"Victory","command_name":"c"}`},
		{name: "missing command", body: `{"gesture":"Victory","plugin_name":"p"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/bindings", bytes.NewReader([]byte(tt.body)))
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
			}
		})
	}
}

func TestBindingHandler_Create_DuplicateGesture(t *testing.T) {
	s := newTestStore(t)
	handler := NewBindingHandler(s)

	first := &store.Binding{ID: uuid.NewString(), Gesture: "Victory", PluginName: "p", CommandName: "c"}
	if err := s.Bindings().Create(first); err != nil {
		t.Fatalf("failed to create binding: %v", err)
	}

	raw, _ := json.Marshal(bindingRequest{Gesture: "Victory", PluginName: "p", CommandName: "c2"})
	req := httptest.NewRequest(http.MethodPost, "/api/bindings", bytes.NewReader(raw))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Errorf("expected status %d for duplicate gesture, got %d", http.StatusConflict, rec.Code)
	}
}

func TestBindingHandler_Update(t *testing.T) {
	s := newTestStore(t)
	handler := NewBindingHandler(s)

	binding := &store.Binding{
		ID:          "binding-upd",
		Gesture:     "Closed_Fist",
		PluginName:  "robot-control",
		CommandName: "stand-down",
		Enabled:     true,
	}
	if err := s.Bindings().Create(binding); err != nil {
		t.Fatalf("failed to create binding: %v", err)
	}

	disabled := false
	raw, _ := json.Marshal(bindingRequest{CommandName: "stand-up", Enabled: &disabled})
	req := httptest.NewRequest(http.MethodPut, "/api/bindings/binding-upd", bytes.NewReader(raw))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}

	updated, err := s.Bindings().GetByID("binding-upd")
	if err != nil {
		t.Fatalf("failed to get binding: %v", err)
	}
	if updated.CommandName != "stand-up" {
		t.Errorf("expected command 'stand-up', got %q", updated.CommandName)
	}
	if updated.Enabled {
		t.Error("expected binding disabled after update")
	}
	// Untouched fields preserved
	if updated.Gesture != "Closed_Fist" {
		t.Errorf("expected gesture unchanged, got %q", updated.Gesture)
	}
}

func TestBindingHandler_Delete(t *testing.T) {
	s := newTestStore(t)
	handler := NewBindingHandler(s)

	binding := &store.Binding{ID: "binding-del", Gesture: "ILoveYou", PluginName: "p", CommandName: "c"}
	if err := s.Bindings().Create(binding); err != nil {
		t.Fatalf("failed to create binding: %v", err)
	}

	req := httptest.NewRequest(http.MethodDelete, "/api/bindings/binding-del", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("expected status %d, got %d", http.StatusNoContent, rec.Code)
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/bindings/binding-del", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d on second delete, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestBindingHandler_Get_NotFound(t *testing.T) {
	s := newTestStore(t)
	handler := NewBindingHandler(s)

	req := httptest.NewRequest(http.MethodGet, "/api/bindings/missing", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}
