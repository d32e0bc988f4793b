package actuator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"time"
)

// DefaultTimeout bounds one command execution. Actuator motions can be
// slow; the timeout is the plugin's problem beyond this point.
const DefaultTimeout = 10 * time.Second

// Runner executes command plugins with a timeout.
type Runner struct {
	timeout time.Duration
}

// NewRunner creates a Runner with the given execution timeout. A
// non-positive timeout falls back to DefaultTimeout.
func NewRunner(timeout time.Duration) *Runner {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Runner{timeout: timeout}
}

// Run executes one command against a plugin: the request is marshalled
// to JSON on the plugin's stdin, its stdout is parsed as a Response. The
// subprocess is killed when the timeout elapses.
func (r *Runner) Run(plugin *Plugin, req *Request) (*Response, error) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, plugin.Executable)
	cmd.Dir = plugin.Path

	reqJSON, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	cmd.Stdin = bytes.NewReader(reqJSON)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()

	if ctx.Err() == context.DeadlineExceeded {
		return nil, fmt.Errorf("command timeout after %s", r.timeout)
	}
	if err != nil {
		if s := stderr.String(); s != "" {
			return nil, fmt.Errorf("command failed: %w, stderr: %s", err, s)
		}
		return nil, fmt.Errorf("command failed: %w", err)
	}

	var response Response
	if err := json.Unmarshal(stdout.Bytes(), &response); err != nil {
		return nil, fmt.Errorf("parse response: %w, stdout: %s", err, stdout.String())
	}

	if !response.Success {
		return &response, fmt.Errorf("command rejected: %s", response.Error)
	}

	return &response, nil
}
