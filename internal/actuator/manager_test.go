package actuator

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeManifest(t *testing.T, root, name string, manifest Manifest) {
	t.Helper()

	pluginDir := filepath.Join(root, name)
	if err := os.MkdirAll(pluginDir, 0755); err != nil {
		t.Fatalf("failed to create plugin dir: %v", err)
	}

	data, err := json.Marshal(manifest)
	if err != nil {
		t.Fatalf("failed to marshal manifest: %v", err)
	}
	if err := os.WriteFile(filepath.Join(pluginDir, "plugin.json"), data, 0644); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}
}

func TestManager_Discover(t *testing.T) {
	tmpDir := t.TempDir()

	writeManifest(t, tmpDir, "robot-control", Manifest{
		Name:        "robot-control",
		Version:     "1.0.0",
		Description: "Quadruped motion commands",
		Executable:  "robot-control",
		Commands:    []string{"stand-up", "stand-down", "hello"},
	})

	manager := NewManager(tmpDir)
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}

	plugins := manager.List()
	if len(plugins) != 1 {
		t.Fatalf("expected 1 plugin, got %d", len(plugins))
	}

	plugin, err := manager.Get("robot-control")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if plugin.Executable != filepath.Join(tmpDir, "robot-control", "robot-control") {
		t.Errorf("unexpected executable path %q", plugin.Executable)
	}
	if !plugin.HasCommand("hello") {
		t.Error("expected plugin to declare command 'hello'")
	}
	if plugin.HasCommand("sit") {
		t.Error("did not expect plugin to declare command 'sit'")
	}
}

func TestManager_Discover_SkipsInvalidManifests(t *testing.T) {
	tmpDir := t.TempDir()

	// A directory with a broken manifest
	brokenDir := filepath.Join(tmpDir, "broken")
	if err := os.MkdirAll(brokenDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(brokenDir, "plugin.json"), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	// A directory without a manifest at all
	if err := os.MkdirAll(filepath.Join(tmpDir, "empty"), 0755); err != nil {
		t.Fatal(err)
	}

	writeManifest(t, tmpDir, "good", Manifest{
		Name:       "good",
		Executable: "good",
		Commands:   []string{"ping"},
	})

	manager := NewManager(tmpDir)
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}

	if len(manager.List()) != 1 {
		t.Errorf("expected only the valid plugin, got %d", len(manager.List()))
	}
}

func TestManager_Discover_MissingDir(t *testing.T) {
	manager := NewManager(filepath.Join(t.TempDir(), "does-not-exist"))
	if err := manager.Discover(); err != nil {
		t.Errorf("expected missing plugin dir to be non-fatal, got %v", err)
	}
}

func TestManager_Get_NotFound(t *testing.T) {
	manager := NewManager(t.TempDir())
	if err := manager.Discover(); err != nil {
		t.Fatal(err)
	}

	_, err := manager.Get("nope")
	if !errors.Is(err, ErrPluginNotFound) {
		t.Errorf("expected ErrPluginNotFound, got %v", err)
	}
}
