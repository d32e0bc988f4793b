package model

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"
)

// PoseClassifier maps a flattened, normalized landmark vector to a
// static pose class id. Deterministic, no side effects.
type PoseClassifier interface {
	Classify(features []float64) (int, error)
}

// serviceIdleTimeout is how long the sidecar may sit unused before it is
// shut down to release the models.
const serviceIdleTimeout = 30 * time.Second

// Service runs the pose and trajectory classifier models in a Python
// sidecar. Requests and responses are single JSON lines over
// stdin/stdout; the process is started lazily and stopped when idle.
type Service struct {
	mu        sync.Mutex
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	stdout    *bufio.Reader
	started   bool
	idleTimer *time.Timer
}

// NewService creates a classifier Service. The sidecar script must be
// locatable; the process itself starts on first use.
func NewService() (*Service, error) {
	if findClassifierScript() == "" {
		return nil, fmt.Errorf("classifier_service.py not found")
	}
	return &Service{}, nil
}

type classifyRequest struct {
	Model    string    `json:"model"`
	Features []float64 `json:"features"`
}

type classifyResponse struct {
	ID    int    `json:"id"`
	Error string `json:"error,omitempty"`
}

// ClassifyPose runs the static pose model.
func (s *Service) ClassifyPose(features []float64) (int, error) {
	return s.classify("pose", features)
}

// ClassifyTrajectory runs the fingertip trajectory model.
func (s *Service) ClassifyTrajectory(features []float64) (int, error) {
	return s.classify("trajectory", features)
}

func (s *Service) classify(model string, features []float64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureStarted(); err != nil {
		return 0, err
	}

	req, err := json.Marshal(classifyRequest{Model: model, Features: features})
	if err != nil {
		return 0, fmt.Errorf("marshal request: %w", err)
	}
	req = append(req, '\n')

	if _, err := s.stdin.Write(req); err != nil {
		return 0, fmt.Errorf("write request: %w", err)
	}

	line, err := s.stdout.ReadString('\n')
	if err != nil {
		return 0, fmt.Errorf("read response: %w", err)
	}

	var resp classifyResponse
	if err := json.Unmarshal([]byte(line), &resp); err != nil {
		return 0, fmt.Errorf("parse response: %w", err)
	}
	if resp.Error != "" {
		return 0, fmt.Errorf("classify %s: %s", model, resp.Error)
	}

	s.resetIdleTimer()
	return resp.ID, nil
}

// Close shuts down the sidecar process.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shutdown()
}

func (s *Service) ensureStarted() error {
	if s.started {
		return nil
	}

	scriptPath := findClassifierScript()
	if scriptPath == "" {
		return fmt.Errorf("classifier_service.py not found")
	}

	pythonPath := findServicePython()
	if pythonPath == "" {
		pythonPath = "python3"
	}

	s.cmd = exec.Command(pythonPath, scriptPath)

	stdin, err := s.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}

	stdout, err := s.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}

	s.cmd.Stderr = os.Stderr

	if err := s.cmd.Start(); err != nil {
		return fmt.Errorf("start classifier sidecar: %w", err)
	}

	s.stdin = stdin
	s.stdout = bufio.NewReader(stdout)
	s.started = true

	return nil
}

func (s *Service) shutdown() error {
	if !s.started {
		return nil
	}

	if s.idleTimer != nil {
		s.idleTimer.Stop()
		s.idleTimer = nil
	}

	if s.stdin != nil {
		s.stdin.Close()
	}

	err := s.cmd.Wait()
	s.started = false
	s.cmd = nil
	s.stdin = nil
	s.stdout = nil

	return err
}

func (s *Service) resetIdleTimer() {
	if s.idleTimer != nil {
		s.idleTimer.Stop()
	}
	s.idleTimer = time.AfterFunc(serviceIdleTimeout, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.shutdown()
	})
}

func findClassifierScript() string {
	if dir := os.Getenv("MUDRA_SCRIPTS"); dir != "" {
		path := filepath.Join(dir, "classifier_service.py")
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	execPath, err := os.Executable()
	var execDir string
	if err == nil {
		execDir = filepath.Dir(execPath)
	}

	candidates := []string{
		"scripts/classifier_service.py",
		"../scripts/classifier_service.py",
		filepath.Join(execDir, "scripts/classifier_service.py"),
		filepath.Join(os.Getenv("HOME"), ".mudra/scripts/classifier_service.py"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			absPath, err := filepath.Abs(path)
			if err == nil {
				return absPath
			}
			return path
		}
	}
	return ""
}

func findServicePython() string {
	execPath, err := os.Executable()
	if err != nil {
		return ""
	}
	execDir := filepath.Dir(execPath)

	candidates := []string{
		"venv/bin/python",
		"../venv/bin/python",
		filepath.Join(execDir, "venv/bin/python"),
		filepath.Join(os.Getenv("HOME"), ".mudra/venv/bin/python"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			absPath, err := filepath.Abs(path)
			if err == nil {
				return absPath
			}
			return path
		}
	}
	return ""
}
