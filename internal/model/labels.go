// Package model provides the classifier boundaries: a sidecar-backed
// synchronous pose/trajectory classifier service and the asynchronous
// live-stream gesture recognizer.
package model

// LabelUnknown is returned for class ids outside the label table.
const LabelUnknown = "Unknown"

// PointerPoseID is the static pose class tracked by the trajectory
// smoother (index finger pointing).
const PointerPoseID = 2

// DefaultPoseLabels are the class labels of the bundled static pose model.
var DefaultPoseLabels = []string{"Open", "Close", "Pointer", "OK"}

// DefaultTrajectoryLabels are the class labels of the bundled fingertip
// trajectory model. Index 0 is the neutral class.
var DefaultTrajectoryLabels = []string{"Stop", "Clockwise", "Counter Clockwise", "Move"}

// Label resolves a class id against a label table. Out-of-range ids map
// to LabelUnknown so new model classes degrade to a no-op downstream.
func Label(labels []string, id int) string {
	if id < 0 || id >= len(labels) {
		return LabelUnknown
	}
	return labels[id]
}
