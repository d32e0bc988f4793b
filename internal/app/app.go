// Package app wires the capture, detection, classification and dispatch
// stages of the Mudra gesture control system into one pipeline.
package app

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/mudra/internal/actuator"
	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/dispatch"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/model"
	"github.com/ayusman/mudra/internal/store"
)

// Pipeline timing constants.
const (
	// IdleFPS is the frame rate while no motion is seen.
	IdleFPS = 5
	// ActiveFPS is the frame rate during active detection.
	ActiveFPS = 15
	// IdleTimeout is how long without motion before dropping back to idle.
	IdleTimeout = 2 * time.Second
)

// Config holds configuration options for the application.
type Config struct {
	Store          *store.Store
	PluginDir      string
	CameraID       int
	MotionThresh   float64
	Cooldown       time.Duration
	FlipHandedness bool
}

// DefaultConfig returns a Config with default values. The store and
// plugin directory must still be supplied by the caller.
func DefaultConfig() Config {
	return Config{
		MotionThresh:   1.0,
		Cooldown:       dispatch.DefaultCooldown,
		FlipHandedness: true,
	}
}

// App owns the detection pipeline and its dependencies.
type App struct {
	config Config

	camera   capture.Camera
	motion   *capture.MotionDetector
	detector detector.Detector

	state      *gesture.State
	aggregator *gesture.Aggregator
	smoother   *gesture.Smoother

	poseClassifier model.PoseClassifier
	modelService   *model.Service

	actuators *actuator.Manager
	runner    *actuator.Runner

	dispatcher *dispatch.Dispatcher
	bindings   map[string]*store.Binding

	onGesture func(label string)

	enabled bool
	mu      sync.RWMutex
	stopCh  chan struct{}
}

// New creates an App. External model sidecars are attached when
// available and replaced by inert mocks otherwise, so the app always
// constructs.
func New(config Config) *App {
	if config.MotionThresh <= 0 {
		config.MotionThresh = 1.0
	}
	if config.Cooldown <= 0 {
		config.Cooldown = dispatch.DefaultCooldown
	}

	a := &App{
		config:    config,
		camera:    capture.NewCamera(config.CameraID),
		motion:    capture.NewMotionDetector(config.MotionThresh),
		state:     gesture.NewState(),
		actuators: actuator.NewManager(config.PluginDir),
		runner:    actuator.NewRunner(actuator.DefaultTimeout),
		bindings:  make(map[string]*store.Binding),
	}

	aggConfig := gesture.DefaultAggregatorConfig()
	aggConfig.FlipHandedness = config.FlipHandedness
	a.aggregator = gesture.NewAggregator(a.state, aggConfig)

	if recognizer, err := model.NewStreamRecognizer(a.aggregator.HandleResult); err == nil {
		a.aggregator.SetClassifier(recognizer)
		log.Println("Using gesture recognizer sidecar")
	} else {
		log.Printf("Gesture recognizer not available (%v), using mock", err)
		a.aggregator.SetClassifier(model.NewMockStreamClassifier(a.aggregator.HandleResult))
	}

	var trajectory gesture.TrajectoryClassifier
	if service, err := model.NewService(); err == nil {
		a.modelService = service
		a.poseClassifier = service
		trajectory = &trajectoryAdapter{service: service}
		log.Println("Using classifier sidecar")
	} else {
		log.Printf("Classifier service not available (%v), using mocks", err)
		a.poseClassifier = &model.MockPoseClassifier{}
		trajectory = &model.MockTrajectoryClassifier{}
	}
	a.smoother = gesture.NewSmoother(trajectory, gesture.DefaultSmootherConfig())

	if mp, err := detector.NewMediaPipeDetector(detector.DefaultConfig()); err == nil {
		a.detector = mp
		log.Println("Using MediaPipe hand detection")
	} else {
		log.Printf("MediaPipe not available (%v), using mock detector", err)
		a.detector = detector.NewMockDetector()
	}

	return a
}

// trajectoryAdapter routes trajectory classification to the shared
// model service.
type trajectoryAdapter struct {
	service *model.Service
}

func (t *trajectoryAdapter) Classify(features []float64) (int, error) {
	return t.service.ClassifyTrajectory(features)
}

// SetEnabled enables or disables gesture detection.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enabled = enabled
}

// IsEnabled reports whether gesture detection is currently enabled.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// SetDetector replaces the hand detector. Used by tests.
func (a *App) SetDetector(d detector.Detector) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.detector = d
}

// SetCamera replaces the frame source. Used by tests.
func (a *App) SetCamera(c capture.Camera) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.camera = c
}

// SetGestureListener registers a callback invoked with the label of
// every dispatched gesture. Intended for the tray UI.
func (a *App) SetGestureListener(fn func(label string)) {
	a.onGesture = fn
}

// DiscoverPlugins scans the plugin directory for actuator plugins.
func (a *App) DiscoverPlugins() error {
	return a.actuators.Discover()
}

// LoadBindings reads enabled gesture bindings from the store and builds
// the dispatcher from them. A previous dispatcher, if any, is shut down
// first, so reloading after a binding change is safe.
func (a *App) LoadBindings() error {
	if a.config.Store == nil {
		return nil
	}

	bindings, err := a.config.Store.Bindings().List()
	if err != nil {
		return fmt.Errorf("list bindings: %w", err)
	}

	actions := make(map[string]dispatch.ActionFunc)
	cooldowns := make(map[string]time.Duration)
	byGesture := make(map[string]*store.Binding)

	for _, b := range bindings {
		if !b.Enabled {
			continue
		}

		plugin, err := a.actuators.Get(b.PluginName)
		if err != nil {
			log.Printf("Binding %s: plugin %q not available, skipping", b.Gesture, b.PluginName)
			continue
		}
		if !plugin.HasCommand(b.CommandName) {
			log.Printf("Binding %s: plugin %q has no command %q, skipping", b.Gesture, b.PluginName, b.CommandName)
			continue
		}

		binding := b
		pluginConfig := binding.Config
		if len(pluginConfig) == 0 {
			pluginConfig = json.RawMessage("{}")
		}

		actions[binding.Gesture] = func() error {
			_, err := a.runner.Run(plugin, &actuator.Request{
				Command: binding.CommandName,
				Gesture: binding.Gesture,
				Config:  pluginConfig,
			})
			return err
		}
		if binding.CooldownMS > 0 {
			cooldowns[binding.Gesture] = time.Duration(binding.CooldownMS) * time.Millisecond
		}
		byGesture[binding.Gesture] = binding
	}

	registry, err := dispatch.NewRegistry(actions)
	if err != nil {
		return fmt.Errorf("build registry: %w", err)
	}

	dispatchConfig := dispatch.DefaultConfig()
	dispatchConfig.Cooldown = a.config.Cooldown
	dispatchConfig.Cooldowns = cooldowns
	dispatchConfig.OnDispatch = a.recordDispatch
	dispatchConfig.OnError = a.recordFailure

	a.mu.Lock()
	old := a.dispatcher
	a.dispatcher = dispatch.New(registry, dispatchConfig)
	a.bindings = byGesture
	a.mu.Unlock()

	if old != nil {
		old.Close()
	}

	log.Printf("Loaded %d gesture bindings", len(actions))
	return nil
}

// recordDispatch logs an accepted trigger to the event log and notifies
// the gesture listener. Runs on a dispatcher worker.
func (a *App) recordDispatch(key string) {
	if a.onGesture != nil {
		a.onGesture(key)
	}
	a.insertEvent(key, store.EventStatusDispatched, "")
}

// recordFailure logs a failed action execution. Runs on a dispatcher
// worker.
func (a *App) recordFailure(key string, err error) {
	log.Printf("Action for %q failed: %v", key, err)
	a.insertEvent(key, store.EventStatusFailed, err.Error())
}

func (a *App) insertEvent(key, status, detail string) {
	if a.config.Store == nil {
		return
	}

	a.mu.RLock()
	binding := a.bindings[key]
	a.mu.RUnlock()
	if binding == nil {
		return
	}

	event := &store.Event{
		ID:          uuid.NewString(),
		Gesture:     key,
		PluginName:  binding.PluginName,
		CommandName: binding.CommandName,
		Status:      status,
		Detail:      detail,
	}
	if err := a.config.Store.Events().Insert(event); err != nil {
		log.Printf("Record event for %q: %v", key, err)
	}
}

// State returns the shared per-hand gesture state.
func (a *App) State() *gesture.State {
	return a.state
}

// Camera returns the frame source.
func (a *App) Camera() capture.Camera {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.camera
}

// MotionDetector returns the motion detector.
func (a *App) MotionDetector() *capture.MotionDetector {
	return a.motion
}

// Actuators returns the plugin manager.
func (a *App) Actuators() *actuator.Manager {
	return a.actuators
}

// Detector returns the hand detector.
func (a *App) Detector() detector.Detector {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.detector
}

// Start opens the camera and begins the detection pipeline.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopCh != nil {
		return nil
	}

	if err := a.camera.Open(); err != nil {
		return err
	}
	a.camera.SetFPS(IdleFPS)

	a.stopCh = make(chan struct{})
	go a.runPipeline(a.stopCh)

	log.Println("Detection pipeline started")
	return nil
}

// Stop halts the pipeline and releases all resources.
func (a *App) Stop() {
	a.mu.Lock()

	if a.stopCh != nil {
		close(a.stopCh)
		a.stopCh = nil
	}

	if err := a.camera.Close(); err != nil {
		log.Printf("Error closing camera: %v", err)
	}
	a.motion.Close()

	if a.detector != nil {
		if err := a.detector.Close(); err != nil {
			log.Printf("Error closing detector: %v", err)
		}
	}

	dispatcher := a.dispatcher
	a.dispatcher = nil
	a.mu.Unlock()

	if dispatcher != nil {
		dispatcher.Close()
	}

	if err := a.aggregator.Close(); err != nil {
		log.Printf("Error closing recognizer: %v", err)
	}
	if a.modelService != nil {
		if err := a.modelService.Close(); err != nil {
			log.Printf("Error closing classifier service: %v", err)
		}
	}

	log.Println("Detection pipeline stopped")
}
