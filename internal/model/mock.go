package model

import (
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/gesture"
)

// MockPoseClassifier is a test implementation of PoseClassifier that
// returns a pre-configured class id.
type MockPoseClassifier struct {
	ID    int
	Err   error
	Calls int
}

// Classify returns the configured id or error.
func (m *MockPoseClassifier) Classify(features []float64) (int, error) {
	m.Calls++
	if m.Err != nil {
		return 0, m.Err
	}
	return m.ID, nil
}

// MockTrajectoryClassifier is a test implementation of the trajectory
// classifier returning a pre-configured class id.
type MockTrajectoryClassifier struct {
	ID    int
	Err   error
	Calls int
}

// Classify returns the configured id or error.
func (m *MockTrajectoryClassifier) Classify(features []float64) (int, error) {
	m.Calls++
	if m.Err != nil {
		return 0, m.Err
	}
	return m.ID, nil
}

// MockStreamClassifier is a test implementation of
// gesture.AsyncClassifier. Submitted frames are recorded; results are
// delivered only when the test calls Deliver, so staleness and ordering
// scenarios can be driven explicitly.
type MockStreamClassifier struct {
	mu         sync.Mutex
	callback   func(gesture.Result)
	timestamps []int64
	closed     bool
}

// NewMockStreamClassifier creates a MockStreamClassifier delivering to
// the given callback.
func NewMockStreamClassifier(callback func(gesture.Result)) *MockStreamClassifier {
	return &MockStreamClassifier{callback: callback}
}

// Recognize records the submission without producing a result.
func (m *MockStreamClassifier) Recognize(frame *gocv.Mat, timestampMS int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timestamps = append(m.timestamps, timestampMS)
	return nil
}

// Deliver synchronously invokes the callback with the given result, as
// the sidecar's reader goroutine would.
func (m *MockStreamClassifier) Deliver(result gesture.Result) {
	m.mu.Lock()
	callback := m.callback
	m.mu.Unlock()

	if callback != nil {
		callback(result)
	}
}

// Timestamps returns the submitted timestamps in order.
func (m *MockStreamClassifier) Timestamps() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]int64, len(m.timestamps))
	copy(out, m.timestamps)
	return out
}

// Close marks the classifier closed.
func (m *MockStreamClassifier) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close was called.
func (m *MockStreamClassifier) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
