package gesture

import (
	"testing"
	"time"

	"gocv.io/x/gocv"
)

// recordingClassifier captures submitted timestamps without doing any work.
type recordingClassifier struct {
	timestamps []int64
}

func (c *recordingClassifier) Recognize(frame *gocv.Mat, timestampMS int64) error {
	c.timestamps = append(c.timestamps, timestampMS)
	return nil
}

func (c *recordingClassifier) Close() error { return nil }

func TestAggregator_HandednessCorrection(t *testing.T) {
	tests := []struct {
		name string
		flip bool
		raw  string
		want Hand
	}{
		{"flip left", true, "Left", HandRight},
		{"flip right", true, "Right", HandLeft},
		{"no flip left", false, "Left", HandLeft},
		{"no flip right", false, "Right", HandRight},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := NewState()
			config := DefaultAggregatorConfig()
			config.FlipHandedness = tt.flip
			agg := NewAggregator(state, config)

			agg.HandleResult(Result{
				Handedness: []string{tt.raw},
				Gestures:   []string{"Victory"},
			})

			if got := state.Get(tt.want); got != "Victory" {
				t.Errorf("expected %s = Victory, got %q (snapshot %v)", tt.want, got, state.Snapshot())
			}
		})
	}
}

func TestAggregator_EmptyResultIgnored(t *testing.T) {
	state := NewState()
	state.Set(HandLeft, "Thumb_Up")
	agg := NewAggregator(state, DefaultAggregatorConfig())

	agg.HandleResult(Result{})

	if got := state.Get(HandLeft); got != "Thumb_Up" {
		t.Errorf("empty result must not touch state, got Left = %q", got)
	}
}

func TestAggregator_MalformedResultCoerced(t *testing.T) {
	state := NewState()
	config := DefaultAggregatorConfig()
	config.FlipHandedness = false
	agg := NewAggregator(state, config)

	// Two handedness entries but only one gesture entry: the second
	// hand's label must be coerced, not dropped or panicked on.
	agg.HandleResult(Result{
		Handedness: []string{"Left", "Right"},
		Gestures:   []string{"Open_Palm"},
	})

	if got := state.Get(HandLeft); got != "Open_Palm" {
		t.Errorf("expected Left = Open_Palm, got %q", got)
	}
	if got := state.Get(HandRight); got != LabelUnknown {
		t.Errorf("expected Right = %q, got %q", LabelUnknown, got)
	}
}

func TestAggregator_UnresolvableHandedness(t *testing.T) {
	state := NewState()
	agg := NewAggregator(state, DefaultAggregatorConfig())

	agg.HandleResult(Result{
		Handedness: []string{""},
		Gestures:   []string{"Victory"},
	})

	snapshot := state.Snapshot()
	if snapshot[HandUnknown] != "Victory" {
		t.Errorf("expected Unknown = Victory, got %v", snapshot)
	}
	// Left and Right must be untouched
	if snapshot[HandLeft] != LabelNone || snapshot[HandRight] != LabelNone {
		t.Errorf("expected Left/Right untouched, got %v", snapshot)
	}
}

func TestAggregator_NoHandsReset(t *testing.T) {
	state := NewState()
	state.Set(HandLeft, "Victory")
	state.Set(HandRight, "Open_Palm")
	agg := NewAggregator(state, DefaultAggregatorConfig())

	agg.Reset()

	snapshot := agg.Snapshot()
	if snapshot[HandLeft] != LabelNone || snapshot[HandRight] != LabelNone {
		t.Errorf("expected both hands reset to %q, got %v", LabelNone, snapshot)
	}
}

func TestAggregator_TimestampClamping(t *testing.T) {
	state := NewState()
	classifier := &recordingClassifier{}

	// A frozen clock forces repeated identical wall-clock reads.
	frozen := time.UnixMilli(1_000_000)
	config := DefaultAggregatorConfig()
	config.Clock = func() time.Time { return frozen }

	agg := NewAggregator(state, config)
	agg.SetClassifier(classifier)

	for i := 0; i < 5; i++ {
		agg.Submit(nil)
	}

	if len(classifier.timestamps) != 5 {
		t.Fatalf("expected 5 submissions, got %d", len(classifier.timestamps))
	}
	for i := 1; i < len(classifier.timestamps); i++ {
		if classifier.timestamps[i] <= classifier.timestamps[i-1] {
			t.Errorf("timestamps not strictly increasing: %v", classifier.timestamps)
			break
		}
	}
	if classifier.timestamps[0] != 1_000_000 {
		t.Errorf("expected first timestamp from clock, got %d", classifier.timestamps[0])
	}
}

func TestAggregator_TimestampClampsBackwardClock(t *testing.T) {
	state := NewState()
	classifier := &recordingClassifier{}

	now := time.UnixMilli(2_000_000)
	config := DefaultAggregatorConfig()
	config.Clock = func() time.Time { return now }

	agg := NewAggregator(state, config)
	agg.SetClassifier(classifier)

	agg.Submit(nil)
	now = time.UnixMilli(1_500_000) // clock jumps backward
	agg.Submit(nil)

	if classifier.timestamps[1] != 2_000_001 {
		t.Errorf("expected clamped timestamp 2000001, got %d", classifier.timestamps[1])
	}
}

func TestAggregator_SubmitWithoutClassifier(t *testing.T) {
	agg := NewAggregator(NewState(), DefaultAggregatorConfig())

	// Must not panic, and still advance the internal clock.
	agg.Submit(nil)
	if agg.LastSubmitted() == 0 {
		t.Error("expected LastSubmitted to advance without a classifier")
	}
}
