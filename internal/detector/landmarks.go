// Package detector provides the hand landmark extraction boundary and
// landmark preprocessing for gesture classification.
package detector

import (
	"image"
	"math"
)

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// Point3D represents a 3D point with x, y, z coordinates. Landmark
// coordinates are normalized to [0,1] relative to the frame.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// HandLandmarks represents the 21 hand landmarks for one detected hand.
// Handedness is the raw label as reported by the extractor, before any
// mirror correction.
type HandLandmarks struct {
	Points     [NumLandmarks]Point3D `json:"points"`
	Handedness string                `json:"handedness"` // "Left" or "Right"
	Score      float64               `json:"score"`
}

// PixelPoint returns landmark i in pixel coordinates for a frame of the
// given dimensions, clamped inside the frame.
func (h *HandLandmarks) PixelPoint(i, width, height int) image.Point {
	x := int(math.Min(h.Points[i].X*float64(width), float64(width-1)))
	y := int(math.Min(h.Points[i].Y*float64(height), float64(height-1)))
	if x < 0 {
		x = 0
	}
	if y < 0 {
		y = 0
	}
	return image.Point{X: x, Y: y}
}

// BoundingRect returns the axis-aligned bounding rectangle of the hand
// in pixel coordinates.
func (h *HandLandmarks) BoundingRect(width, height int) image.Rectangle {
	first := h.PixelPoint(0, width, height)
	minX, minY := first.X, first.Y
	maxX, maxY := first.X, first.Y

	for i := 1; i < NumLandmarks; i++ {
		p := h.PixelPoint(i, width, height)
		if p.X < minX {
			minX = p.X
		}
		if p.X > maxX {
			maxX = p.X
		}
		if p.Y < minY {
			minY = p.Y
		}
		if p.Y > maxY {
			maxY = p.Y
		}
	}

	return image.Rect(minX, minY, maxX+1, maxY+1)
}

// PoseFeatures flattens the landmarks into the input vector of the
// static pose classifier: pixel coordinates relative to the wrist,
// scaled so the largest magnitude is 1. The result interleaves x and y
// for 2*NumLandmarks values.
func (h *HandLandmarks) PoseFeatures(width, height int) []float64 {
	base := h.PixelPoint(Wrist, width, height)

	features := make([]float64, 0, NumLandmarks*2)
	maxAbs := 0.0
	for i := 0; i < NumLandmarks; i++ {
		p := h.PixelPoint(i, width, height)
		x := float64(p.X - base.X)
		y := float64(p.Y - base.Y)
		features = append(features, x, y)

		if abs := math.Abs(x); abs > maxAbs {
			maxAbs = abs
		}
		if abs := math.Abs(y); abs > maxAbs {
			maxAbs = abs
		}
	}

	if maxAbs == 0 {
		return features
	}
	for i := range features {
		features[i] /= maxAbs
	}
	return features
}
