package gesture

import (
	"log"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// AsyncClassifier is the boundary to a live-stream gesture recognition
// model. Recognize is fire-and-forget; results are delivered later, in
// submission order for a given instance, via the callback supplied when
// the classifier was constructed. The timestamp must be strictly
// increasing across successive calls on the same instance.
type AsyncClassifier interface {
	Recognize(frame *gocv.Mat, timestampMS int64) error
	Close() error
}

// Result is one delivery from the asynchronous classifier. Handedness
// and Gestures align by index; the aggregator tolerates misaligned or
// missing entries rather than rejecting the whole result.
type Result struct {
	Handedness  []string  `json:"handedness"`
	Gestures    []string  `json:"gestures"`
	Scores      []float64 `json:"scores"`
	TimestampMS int64     `json:"timestamp_ms"`
}

// AggregatorConfig holds configuration options for the aggregator.
type AggregatorConfig struct {
	// FlipHandedness remaps raw "Left" to "Right" and vice versa. The
	// classification frame is not mirrored the way the preview is, so
	// raw handedness is reversed relative to the user. Enabled by default.
	FlipHandedness bool

	// Clock returns the current time. Defaults to time.Now.
	Clock func() time.Time
}

// DefaultAggregatorConfig returns an AggregatorConfig with default values.
func DefaultAggregatorConfig() AggregatorConfig {
	return AggregatorConfig{
		FlipHandedness: true,
		Clock:          time.Now,
	}
}

// Aggregator bridges the callback-driven asynchronous classifier to the
// synchronous detection loop. Frames go out through Submit; results come
// back on the classifier's own goroutine through HandleResult, which
// merges them into the shared State. The detection loop never waits on a
// result: it reads whatever Snapshot currently holds, which may lag real
// time by one or more classifier round-trips.
type Aggregator struct {
	classifier AsyncClassifier
	state      *State
	config     AggregatorConfig

	mu            sync.Mutex
	lastSubmitted int64
}

// NewAggregator creates an Aggregator writing into the given state.
// The classifier may be attached later via SetClassifier, since the
// classifier itself needs the aggregator's HandleResult as its callback.
func NewAggregator(state *State, config AggregatorConfig) *Aggregator {
	if config.Clock == nil {
		config.Clock = time.Now
	}
	return &Aggregator{
		state:  state,
		config: config,
	}
}

// SetClassifier attaches the asynchronous classifier used by Submit.
func (a *Aggregator) SetClassifier(c AsyncClassifier) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.classifier = c
}

// Submit forwards a frame to the asynchronous classifier. The outgoing
// timestamp is clamped to be strictly greater than the previous
// submission's: the underlying model silently drops frames whose
// timestamps do not increase, and wall-clock reads can repeat within the
// same millisecond. Submit never blocks on classification.
func (a *Aggregator) Submit(frame *gocv.Mat) {
	a.mu.Lock()
	classifier := a.classifier
	ts := a.config.Clock().UnixMilli()
	if ts <= a.lastSubmitted {
		ts = a.lastSubmitted + 1
	}
	a.lastSubmitted = ts
	a.mu.Unlock()

	if classifier == nil {
		return
	}

	if err := classifier.Recognize(frame, ts); err != nil {
		log.Printf("gesture: submit frame: %v", err)
	}
}

// LastSubmitted returns the timestamp of the most recent submission.
func (a *Aggregator) LastSubmitted() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastSubmitted
}

// Reset clears both hands back to LabelNone. Called when a detection
// pass finds no hands: the fresher "no hands" observation wins over any
// result still in flight. A stale result arriving after the reset may
// briefly resurrect its label; that staleness is bounded by one
// classifier round-trip and accepted.
func (a *Aggregator) Reset() {
	a.state.Reset()
}

// Snapshot returns a consistent copy of the current per-hand labels.
func (a *Aggregator) Snapshot() map[Hand]string {
	return a.state.Snapshot()
}

// HandleResult merges one asynchronous result into the shared state. It
// runs on the classifier's delivery goroutine and must stay cheap: it
// only validates, corrects handedness, and writes under the state lock.
// Malformed entries are coerced rather than rejected, and nothing here
// ever panics on model output.
func (a *Aggregator) HandleResult(result Result) {
	if len(result.Handedness) == 0 && len(result.Gestures) == 0 {
		return
	}

	for i := range result.Handedness {
		side := result.Handedness[i]
		if side == "" {
			side = string(HandUnknown)
		}

		label := LabelUnknown
		if i < len(result.Gestures) && result.Gestures[i] != "" {
			label = result.Gestures[i]
		}

		hand := a.correctHandedness(side)
		a.state.Set(hand, label)

		log.Printf("gesture: result %d: %s -> %s", result.TimestampMS, hand, label)
	}
}

// correctHandedness applies the mirror correction to a raw handedness
// label. Labels other than Left/Right pass through unchanged.
func (a *Aggregator) correctHandedness(raw string) Hand {
	if !a.config.FlipHandedness {
		return Hand(raw)
	}
	switch Hand(raw) {
	case HandLeft:
		return HandRight
	case HandRight:
		return HandLeft
	default:
		return Hand(raw)
	}
}

// Close releases the attached classifier, if any.
func (a *Aggregator) Close() error {
	a.mu.Lock()
	classifier := a.classifier
	a.classifier = nil
	a.mu.Unlock()

	if classifier == nil {
		return nil
	}
	return classifier.Close()
}
