package model

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/gesture"
)

// StreamRecognizer runs the live-stream gesture recognition model in a
// Python sidecar and implements gesture.AsyncClassifier. Frames go out
// as timestamped length-prefixed JPEGs; a dedicated reader goroutine
// delivers one JSON result line per frame to the callback, in
// submission order.
type StreamRecognizer struct {
	callback func(gesture.Result)

	mu      sync.Mutex
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	started bool
	done    chan struct{}
}

// NewStreamRecognizer creates a StreamRecognizer delivering results to
// the given callback. The sidecar starts lazily on first Recognize.
func NewStreamRecognizer(callback func(gesture.Result)) (*StreamRecognizer, error) {
	if findRecognizerScript() == "" {
		return nil, fmt.Errorf("gesture_recognizer_service.py not found")
	}
	return &StreamRecognizer{callback: callback}, nil
}

// Recognize submits one frame for asynchronous classification. The
// timestamp must be strictly increasing across calls; the aggregator
// enforces that before calling here.
func (r *StreamRecognizer) Recognize(frame *gocv.Mat, timestampMS int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.ensureStarted(); err != nil {
		return err
	}

	buf, err := gocv.IMEncode(".jpg", *frame)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	data := buf.GetBytes()

	// 8-byte timestamp, 4-byte length, then the JPEG payload.
	header := make([]byte, 12)
	binary.BigEndian.PutUint64(header[:8], uint64(timestampMS))
	binary.BigEndian.PutUint32(header[8:], uint32(len(data)))

	if _, err := r.stdin.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if _, err := r.stdin.Write(data); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// Close shuts down the sidecar and waits for the reader to drain.
func (r *StreamRecognizer) Close() error {
	r.mu.Lock()

	if !r.started {
		r.mu.Unlock()
		return nil
	}

	r.stdin.Close()
	cmd := r.cmd
	done := r.done
	r.started = false
	r.cmd = nil
	r.stdin = nil
	r.mu.Unlock()

	<-done
	return cmd.Wait()
}

func (r *StreamRecognizer) ensureStarted() error {
	if r.started {
		return nil
	}

	scriptPath := findRecognizerScript()
	if scriptPath == "" {
		return fmt.Errorf("gesture_recognizer_service.py not found")
	}

	pythonPath := findServicePython()
	if pythonPath == "" {
		pythonPath = "python3"
	}

	r.cmd = exec.Command(pythonPath, scriptPath)

	stdin, err := r.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}

	stdout, err := r.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}

	r.cmd.Stderr = os.Stderr

	if err := r.cmd.Start(); err != nil {
		return fmt.Errorf("start recognizer sidecar: %w", err)
	}

	r.stdin = stdin
	r.started = true
	r.done = make(chan struct{})

	go r.readResults(bufio.NewReader(stdout), r.done)

	return nil
}

// readResults delivers result lines until the sidecar's stdout closes.
// A single goroutine preserves the model's in-order delivery guarantee.
func (r *StreamRecognizer) readResults(stdout *bufio.Reader, done chan struct{}) {
	defer close(done)

	for {
		line, err := stdout.ReadString('\n')
		if err != nil {
			return
		}

		var result gesture.Result
		if err := json.Unmarshal([]byte(line), &result); err != nil {
			log.Printf("model: malformed recognizer result: %v", err)
			continue
		}

		if r.callback != nil {
			r.callback(result)
		}
	}
}

func findRecognizerScript() string {
	if dir := os.Getenv("MUDRA_SCRIPTS"); dir != "" {
		path := filepath.Join(dir, "gesture_recognizer_service.py")
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
		"scripts/gesture_recognizer_service.py",
		"../scripts/gesture_recognizer_service.py",
		filepath.Join(execDir, "scripts/gesture_recognizer_service.py"),
		filepath.Join(os.Getenv("HOME"), ".mudra/scripts/gesture_recognizer_service.py"),
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
