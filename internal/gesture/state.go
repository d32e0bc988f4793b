// Package gesture provides the shared gesture state, the asynchronous
// classification result aggregator, and the fingertip trajectory smoother.
package gesture

import "sync"

// Hand identifies which physical hand a gesture belongs to, after
// handedness correction.
type Hand string

const (
	// HandLeft is the corrected left hand.
	HandLeft Hand = "Left"
	// HandRight is the corrected right hand.
	HandRight Hand = "Right"
	// HandUnknown is used when a result's handedness cannot be resolved.
	HandUnknown Hand = "Unknown"
)

// Gesture label sentinels.
const (
	// LabelNone means no gesture is currently held by a hand.
	LabelNone = "None"
	// LabelUnknown is substituted for a malformed per-hand result entry.
	LabelUnknown = "Unknown"
)

// State holds the current gesture label per hand. It is created once at
// startup, written by the aggregator's result callback, and read by the
// detection loop and the HTTP server. Both HandLeft and HandRight are
// always present; a write replaces a single hand's label atomically.
type State struct {
	mu    sync.Mutex
	hands map[Hand]string
}

// NewState creates a State with both hands set to LabelNone.
func NewState() *State {
	return &State{
		hands: map[Hand]string{
			HandLeft:  LabelNone,
			HandRight: LabelNone,
		},
	}
}

// Set replaces the label for a single hand.
func (s *State) Set(hand Hand, label string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hands[hand] = label
}

// Get returns the current label for a hand, or LabelNone if the hand has
// never been written.
func (s *State) Get(hand Hand) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	label, ok := s.hands[hand]
	if !ok {
		return LabelNone
	}
	return label
}

// Reset sets both HandLeft and HandRight back to LabelNone and drops any
// extra hand entries written by malformed results.
func (s *State) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.hands = map[Hand]string{
		HandLeft:  LabelNone,
		HandRight: LabelNone,
	}
}

// Snapshot returns a point-in-time copy of the per-hand labels. The copy
// is taken under the same lock used for writes, so a caller can never
// observe a half-written map.
func (s *State) Snapshot() map[Hand]string {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := make(map[Hand]string, len(s.hands))
	for hand, label := range s.hands {
		snapshot[hand] = label
	}
	return snapshot
}
