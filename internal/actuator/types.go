// Package actuator manages the external command plugins that gesture
// triggers are dispatched to. Each plugin is a standalone executable
// receiving a JSON request on stdin and answering with a JSON response
// on stdout.
package actuator

import "encoding/json"

// Manifest describes a command plugin's metadata and capabilities.
type Manifest struct {
	Name         string          `json:"name"`
	Version      string          `json:"version"`
	Description  string          `json:"description"`
	Executable   string          `json:"executable"`
	Commands     []string        `json:"commands"`
	ConfigSchema json.RawMessage `json:"configSchema,omitempty"`
}

// Request is sent to a plugin for one command execution.
type Request struct {
	Command string          `json:"command"`
	Gesture string          `json:"gesture"`
	Hand    string          `json:"hand,omitempty"`
	Config  json.RawMessage `json:"config"`
	Params  json.RawMessage `json:"params"`
}

// Response is a plugin's answer to a Request.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Plugin represents a discovered command plugin with its manifest and
// location on disk.
type Plugin struct {
	Manifest   Manifest
	Path       string
	Executable string
}

// HasCommand reports whether the plugin's manifest declares a command.
func (p *Plugin) HasCommand(name string) bool {
	for _, c := range p.Manifest.Commands {
		if c == name {
			return true
		}
	}
	return false
}
