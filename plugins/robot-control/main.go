// Package main provides a robot control plugin. It forwards motion
// commands to a robot bridge over HTTP.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"
)

// Request represents the input from the actuator runner.
type Request struct {
	Command string          `json:"command"`
	Gesture string          `json:"gesture"`
	Hand    string          `json:"hand"`
	Config  json.RawMessage `json:"config"`
	Params  json.RawMessage `json:"params"`
}

// Response represents the output to the actuator runner.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// PluginConfig holds the per-binding configuration.
type PluginConfig struct {
	Endpoint string `json:"endpoint"`
}

// motionMap maps plugin commands to bridge motion names.
var motionMap = map[string]string{
	"stand-up":   "StandUp",
	"stand-down": "StandDown",
	"hello":      "Hello",
	"stretch":    "Stretch",
}

const defaultEndpoint = "http://127.0.0.1:9090/motion"

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeErrorResponse(fmt.Sprintf("failed to decode request: %v", err))
		return
	}

	motion, ok := motionMap[req.Command]
	if !ok {
		writeErrorResponse(fmt.Sprintf("unknown command: %s", req.Command))
		return
	}

	endpoint := defaultEndpoint
	if len(req.Config) > 0 {
		var config PluginConfig
		if err := json.Unmarshal(req.Config, &config); err == nil && config.Endpoint != "" {
			endpoint = config.Endpoint
		}
	}

	if err := sendMotion(endpoint, motion, req.Gesture); err != nil {
		writeErrorResponse(fmt.Sprintf("command %s failed: %v", req.Command, err))
		return
	}

	data, _ := json.Marshal(map[string]string{"motion": motion})
	json.NewEncoder(os.Stdout).Encode(Response{Success: true, Data: data})
}

// sendMotion posts one motion command to the robot bridge.
func sendMotion(endpoint, motion, gesture string) error {
	payload, err := json.Marshal(map[string]string{
		"motion":  motion,
		"trigger": gesture,
	})
	if err != nil {
		return err
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Post(endpoint, "application/json", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("bridge returned status %d", resp.StatusCode)
	}
	return nil
}

// writeErrorResponse writes an error response to stdout.
func writeErrorResponse(errMsg string) {
	json.NewEncoder(os.Stdout).Encode(Response{
		Success: false,
		Error:   errMsg,
	})
}
