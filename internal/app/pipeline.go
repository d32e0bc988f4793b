package app

import (
	"log"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/model"
)

// runPipeline is the detection loop. It alternates between an idle and
// an active mode driven by motion detection:
//
//  1. Idle: frames at IdleFPS, motion differencing only.
//  2. Motion seen: switch to ActiveFPS and run full detection.
//  3. Per frame, extract hand landmarks. No hands clears the shared
//     state and pushes a sentinel into the trajectory history.
//  4. With hands, the frame goes to the asynchronous recognizer, the
//     pose classifier runs per hand, and the fingertip trajectory is
//     smoothed into a stable id.
//  5. Pose, trajectory and recognizer labels all feed the dispatcher,
//     which debounces them into actuator commands.
//  6. After IdleTimeout without motion, drop back to idle.
func (a *App) runPipeline(stopCh chan struct{}) {
	activeMode := false
	lastMotionTime := time.Now()

	frameInterval := time.Second / time.Duration(IdleFPS)
	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			if !a.IsEnabled() {
				continue
			}

			camera := a.Camera()
			frame, err := camera.ReadFrame()
			if err != nil {
				log.Printf("Error reading frame: %v", err)
				continue
			}

			motionDetected, _ := a.motion.Detect(frame)

			if motionDetected {
				lastMotionTime = time.Now()
				if !activeMode {
					activeMode = true
					camera.SetFPS(ActiveFPS)
					frameInterval = time.Second / time.Duration(ActiveFPS)
					ticker.Reset(frameInterval)
					log.Println("Switched to active mode")
				}
			} else if activeMode {
				if time.Since(lastMotionTime) > IdleTimeout {
					activeMode = false
					camera.SetFPS(IdleFPS)
					frameInterval = time.Second / time.Duration(IdleFPS)
					ticker.Reset(frameInterval)
					a.smoother.Reset()
					log.Println("Switched to idle mode")
				}
			}

			if !activeMode {
				frame.Close()
				continue
			}

			a.processFrame(frame)
			frame.Close()
		}
	}
}

// processFrame runs one full detection pass over a frame. The frame
// remains owned by the caller.
func (a *App) processFrame(frame *gocv.Mat) {
	det := a.Detector()
	if det == nil {
		return
	}

	hands, err := det.Detect(frame)
	if err != nil {
		log.Printf("Error detecting hands: %v", err)
		return
	}

	width := frame.Cols()
	height := frame.Rows()

	if len(hands) == 0 {
		// The fresher no-hands observation wins over in-flight results.
		a.aggregator.Reset()
		a.smoother.PushEmpty()
		return
	}

	a.aggregator.Submit(frame)

	for i := range hands {
		hand := &hands[i]

		poseID, err := a.poseClassifier.Classify(hand.PoseFeatures(width, height))
		if err != nil {
			log.Printf("Error classifying pose: %v", err)
			continue
		}

		point := gesture.SentinelPoint
		if poseID == model.PointerPoseID {
			tip := hand.PixelPoint(detector.IndexTip, width, height)
			point = gesture.Point{X: float64(tip.X), Y: float64(tip.Y)}
		}
		trajectoryID := a.smoother.Observe(point, width, height)

		a.dispatchTrigger(model.Label(model.DefaultPoseLabels, poseID))
		a.dispatchTrigger(model.Label(model.DefaultTrajectoryLabels, trajectoryID))
	}

	for _, label := range a.aggregator.Snapshot() {
		if label != gesture.LabelNone && label != gesture.LabelUnknown {
			a.dispatchTrigger(label)
		}
	}
}

// dispatchTrigger forwards one gesture label to the dispatcher, if
// bindings have been loaded.
func (a *App) dispatchTrigger(key string) {
	a.mu.RLock()
	dispatcher := a.dispatcher
	a.mu.RUnlock()

	if dispatcher != nil {
		dispatcher.Process(key)
	}
}
