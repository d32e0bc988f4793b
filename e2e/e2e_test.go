package e2e

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/server"
	"github.com/ayusman/mudra/internal/store"
)

func TestE2E_CompleteWorkflow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	tmpDir := t.TempDir()
	s, err := store.New(filepath.Join(tmpDir, "data.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer s.Close()

	application := app.New(app.Config{
		Store:        s,
		PluginDir:    filepath.Join(tmpDir, "plugins"),
		MotionThresh: 0.05,
	})
	defer application.Stop()

	srv := server.New(server.Config{
		Store: s,
		State: application.State(),
	})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	client := ts.Client()

	var bindingID string

	t.Run("CreateBinding", func(t *testing.T) {
		resp, err := client.Post(
			ts.URL+"/api/bindings",
			"application/json",
			strings.NewReader(`{"gesture": "Thumb_Up", "plugin_name": "robot-control", "command_name": "stand-up"}`),
		)
		if err != nil {
			t.Fatalf("create binding error = %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusCreated)
		}

		var created struct {
			ID string `json:"id"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		bindingID = created.ID
	})

	t.Run("ListBindings", func(t *testing.T) {
		resp, err := client.Get(ts.URL + "/api/bindings")
		if err != nil {
			t.Fatalf("list bindings error = %v", err)
		}
		defer resp.Body.Close()

		var listed struct {
			Bindings []struct {
				ID      string `json:"id"`
				Gesture string `json:"gesture"`
			} `json:"bindings"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&listed); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if len(listed.Bindings) != 1 || listed.Bindings[0].ID != bindingID {
			t.Errorf("expected created binding in list, got %+v", listed.Bindings)
		}
	})

	t.Run("DetectUpdatesState", func(t *testing.T) {
		mockDetector := detector.NewMockDetector()
		mockDetector.SetHands([]detector.HandLandmarks{detector.PointingUpLandmarks()})
		application.SetDetector(mockDetector)

		// Simulate a recognizer delivery and check the state endpoint
		// reflects it.
		application.State().Set(gesture.HandRight, "Thumb_Up")

		hands, err := application.Detector().Detect(nil)
		if err != nil || len(hands) == 0 {
			t.Fatal("mock detector should report one hand")
		}

		resp, err := client.Get(ts.URL + "/api/state")
		if err != nil {
			t.Fatalf("get state error = %v", err)
		}
		defer resp.Body.Close()

		var state struct {
			Hands map[string]string `json:"hands"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if state.Hands["Right"] != "Thumb_Up" {
			t.Errorf("expected Right=Thumb_Up, got %q", state.Hands["Right"])
		}
	})

	t.Run("EventLog", func(t *testing.T) {
		err := s.Events().Insert(&store.Event{
			ID:           "e2e-event",
			Gesture:      "Thumb_Up",
			PluginName:   "robot-control",
			CommandName:  "stand-up",
			Status:       store.EventStatusDispatched,
			DispatchedAt: time.Now(),
		})
		if err != nil {
			t.Fatalf("insert event: %v", err)
		}

		resp, err := client.Get(ts.URL + "/api/events")
		if err != nil {
			t.Fatalf("list events error = %v", err)
		}
		defer resp.Body.Close()

		var listed struct {
			Events []struct {
				Gesture string `json:"gesture"`
			} `json:"events"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&listed); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if len(listed.Events) != 1 || listed.Events[0].Gesture != "Thumb_Up" {
			t.Errorf("expected dispatched event in log, got %+v", listed.Events)
		}
	})

	t.Run("DeleteBinding", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/api/bindings/"+bindingID, nil)
		resp, err := client.Do(req)
		if err != nil {
			t.Fatalf("delete binding error = %v", err)
		}
		resp.Body.Close()

		if resp.StatusCode != http.StatusNoContent {
			t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNoContent)
		}
	})

	t.Run("APIStillWorks", func(t *testing.T) {
		resp, err := client.Get(ts.URL + "/api/health")
		if err != nil {
			t.Fatalf("health check error = %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("health check failed after app operations")
		}
	})
}
