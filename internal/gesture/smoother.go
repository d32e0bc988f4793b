package gesture

import "log"

// DefaultHistorySize is the capacity of the point and trajectory-id
// histories. The trajectory model consumes exactly this many points.
const DefaultHistorySize = 16

// NeutralTrajectoryID is emitted while the point history is still
// filling, so that partial windows never reach the classifier.
const NeutralTrajectoryID = 0

// Point is a fingertip position in frame pixel coordinates.
type Point struct {
	X float64
	Y float64
}

// SentinelPoint is appended for frames where no fingertip was tracked,
// keeping the history continuous in length regardless of pose.
var SentinelPoint = Point{X: 0, Y: 0}

// TrajectoryClassifier maps a flattened, preprocessed point history to a
// discrete trajectory class id. Deterministic, no side effects.
type TrajectoryClassifier interface {
	Classify(features []float64) (int, error)
}

// SmootherConfig holds configuration options for the smoother.
type SmootherConfig struct {
	// HistorySize is the capacity of both bounded histories.
	HistorySize int
}

// DefaultSmootherConfig returns a SmootherConfig with default values.
func DefaultSmootherConfig() SmootherConfig {
	return SmootherConfig{HistorySize: DefaultHistorySize}
}

// Smoother converts a noisy per-frame fingertip trajectory into a stable
// discrete id. Two layers of smoothing: the classifier only runs once
// the bounded point history is completely full, and its raw per-frame
// output is majority-voted over a second bounded history to suppress
// single-frame flicker.
//
// The smoother is owned and driven solely by the detection loop; it is
// not safe for concurrent use.
type Smoother struct {
	classifier TrajectoryClassifier
	config     SmootherConfig

	points []Point
	ids    []int
}

// NewSmoother creates a Smoother using the given trajectory classifier.
func NewSmoother(classifier TrajectoryClassifier, config SmootherConfig) *Smoother {
	if config.HistorySize <= 0 {
		config.HistorySize = DefaultHistorySize
	}
	return &Smoother{
		classifier: classifier,
		config:     config,
		points:     make([]Point, 0, config.HistorySize),
		ids:        make([]int, 0, config.HistorySize),
	}
}

// Observe records one frame's fingertip position (or SentinelPoint when
// the tracked pose was not held), classifies the trajectory window when
// it is full, and returns the majority-voted effective trajectory id.
func (s *Smoother) Observe(point Point, frameWidth, frameHeight int) int {
	s.appendPoint(point)

	id := NeutralTrajectoryID
	features := s.Features(frameWidth, frameHeight)
	if len(features) == s.config.HistorySize*2 {
		classified, err := s.classifier.Classify(features)
		if err != nil {
			log.Printf("gesture: trajectory classify: %v", err)
		} else {
			id = classified
		}
	}

	s.appendID(id)
	return s.EffectiveID()
}

// PushEmpty appends the sentinel point for a frame with no detected
// hands, without running classification.
func (s *Smoother) PushEmpty() {
	s.appendPoint(SentinelPoint)
}

// Features flattens the point history into classifier input: each point
// relative to the oldest point in the window, normalized by the frame
// dimensions. The result has 2*len(history) values, so it reaches the
// full 2*HistorySize length only when the history is full.
func (s *Smoother) Features(frameWidth, frameHeight int) []float64 {
	if len(s.points) == 0 || frameWidth <= 0 || frameHeight <= 0 {
		return nil
	}

	base := s.points[0]
	features := make([]float64, 0, len(s.points)*2)
	for _, p := range s.points {
		features = append(features,
			(p.X-base.X)/float64(frameWidth),
			(p.Y-base.Y)/float64(frameHeight),
		)
	}
	return features
}

// EffectiveID returns the majority-voted trajectory id over the id
// history, or NeutralTrajectoryID if nothing has been observed yet.
func (s *Smoother) EffectiveID() int {
	if len(s.ids) == 0 {
		return NeutralTrajectoryID
	}
	return MajorityVote(s.ids)
}

// Reset clears both histories.
func (s *Smoother) Reset() {
	s.points = s.points[:0]
	s.ids = s.ids[:0]
}

func (s *Smoother) appendPoint(p Point) {
	if len(s.points) >= s.config.HistorySize {
		copy(s.points, s.points[1:])
		s.points = s.points[:s.config.HistorySize-1]
	}
	s.points = append(s.points, p)
}

func (s *Smoother) appendID(id int) {
	if len(s.ids) >= s.config.HistorySize {
		copy(s.ids, s.ids[1:])
		s.ids = s.ids[:s.config.HistorySize-1]
	}
	s.ids = append(s.ids, id)
}

// MajorityVote returns the most frequent value in ids. Ties break
// deterministically: among values with the maximal count, the one
// encountered first in iteration order wins.
func MajorityVote(ids []int) int {
	counts := make(map[int]int, len(ids))
	order := make([]int, 0, len(ids))

	for _, id := range ids {
		if _, seen := counts[id]; !seen {
			order = append(order, id)
		}
		counts[id]++
	}

	best := 0
	bestCount := 0
	for _, id := range order {
		if counts[id] > bestCount {
			best = id
			bestCount = counts[id]
		}
	}
	return best
}
