// Package dispatch converts repeatedly re-observed gesture signals into
// debounced, at-most-once-per-cooldown actuator invocations.
package dispatch

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"
)

// ActionFunc is a bound actuator command. It may be long-running; it is
// always executed on a worker goroutine, never on the caller's.
type ActionFunc func() error

// Registry maps gesture keys to actions. It is immutable after
// construction; lookups of unregistered keys at dispatch time are
// expected and silently ignored, so forward-compatible labels from the
// model need no registration.
type Registry map[string]ActionFunc

// ErrNilAction is returned by NewRegistry for a key bound to nil.
var ErrNilAction = errors.New("nil action")

// NewRegistry validates and copies the given bindings.
func NewRegistry(actions map[string]ActionFunc) (Registry, error) {
	r := make(Registry, len(actions))
	for key, fn := range actions {
		if fn == nil {
			return nil, fmt.Errorf("register %q: %w", key, ErrNilAction)
		}
		r[key] = fn
	}
	return r, nil
}

// Default dispatcher settings.
const (
	DefaultCooldown  = 2 * time.Second
	DefaultWorkers   = 4
	DefaultQueueSize = 16
)

// Config holds configuration options for the dispatcher.
type Config struct {
	// Cooldown is the minimum interval between two accepted triggers of
	// the same gesture key.
	Cooldown time.Duration

	// Cooldowns holds per-key overrides of Cooldown. Keys absent from
	// the map, or mapped to a non-positive duration, use Cooldown.
	Cooldowns map[string]time.Duration

	// Workers is the number of goroutines executing actions. It caps how
	// many actuator commands can run concurrently.
	Workers int

	// QueueSize bounds the pending-action queue. A trigger accepted
	// while the queue is full is dropped with a log line.
	QueueSize int

	// SingleFlight drops a trigger for a key whose previous action has
	// not finished, preventing overlapping executions of the same
	// command against the actuator.
	SingleFlight bool

	// Clock returns the current time. Defaults to time.Now.
	Clock func() time.Time

	// OnDispatch, if set, is called from the worker just before an
	// accepted action runs. Intended for event logging and UI updates.
	OnDispatch func(key string)

	// OnError, if set, is called with the failure of an action
	// execution. Failures never propagate past the worker.
	OnError func(key string, err error)
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Cooldown:  DefaultCooldown,
		Workers:   DefaultWorkers,
		QueueSize: DefaultQueueSize,
		Clock:     time.Now,
	}
}

type job struct {
	key string
	fn  ActionFunc
}

// Dispatcher debounces gesture triggers per key and hands accepted ones
// to a bounded worker pool. Process may be called from any goroutine at
// any frequency; it never blocks on action execution, and the cooldown
// lock is never held across an external call.
type Dispatcher struct {
	registry Registry
	config   Config

	mu       sync.Mutex
	lastRun  map[string]time.Time
	inflight map[string]bool

	jobs chan job
	quit chan struct{}
	wg   sync.WaitGroup
}

// New creates a Dispatcher and starts its worker pool. Call Close to
// stop the workers.
func New(registry Registry, config Config) *Dispatcher {
	if config.Cooldown <= 0 {
		config.Cooldown = DefaultCooldown
	}
	if config.Workers <= 0 {
		config.Workers = DefaultWorkers
	}
	if config.QueueSize <= 0 {
		config.QueueSize = DefaultQueueSize
	}
	if config.Clock == nil {
		config.Clock = time.Now
	}

	d := &Dispatcher{
		registry: registry,
		config:   config,
		lastRun:  make(map[string]time.Time),
		inflight: make(map[string]bool),
		jobs:     make(chan job, config.QueueSize),
		quit:     make(chan struct{}),
	}

	d.wg.Add(config.Workers)
	for i := 0; i < config.Workers; i++ {
		go d.worker()
	}

	return d
}

// Process evaluates one gesture trigger. Unregistered keys are silent
// no-ops. A registered key fires at most once per cooldown window: the
// elapsed-time check and the cooldown stamp update happen in a single
// critical section, so concurrent callers cannot double-fire.
func (d *Dispatcher) Process(key string) {
	fn, ok := d.registry[key]
	if !ok {
		return
	}

	now := d.config.Clock()
	cooldown := d.config.Cooldown
	if override, ok := d.config.Cooldowns[key]; ok && override > 0 {
		cooldown = override
	}

	d.mu.Lock()
	if last, seen := d.lastRun[key]; seen && now.Sub(last) < cooldown {
		d.mu.Unlock()
		return
	}
	if d.config.SingleFlight && d.inflight[key] {
		d.mu.Unlock()
		return
	}
	d.lastRun[key] = now
	if d.config.SingleFlight {
		d.inflight[key] = true
	}
	d.mu.Unlock()

	select {
	case d.jobs <- job{key: key, fn: fn}:
	default:
		// Queue full: drop the trigger. The cooldown stamp stays set, so
		// at-most-once per window still holds.
		d.clearInflight(key)
		log.Printf("dispatch: queue full, dropping trigger for %q", key)
	}
}

// Registered reports whether a key has a bound action.
func (d *Dispatcher) Registered(key string) bool {
	_, ok := d.registry[key]
	return ok
}

// Close stops the worker pool and waits for in-progress actions to
// finish. Triggers processed after Close are dropped.
func (d *Dispatcher) Close() {
	close(d.quit)
	d.wg.Wait()
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for {
		select {
		case <-d.quit:
			return
		case j := <-d.jobs:
			d.run(j)
		}
	}
}

// run executes one accepted action, isolating errors and panics to this
// worker. Nothing an action does can crash the dispatcher or the
// detection loop.
func (d *Dispatcher) run(j job) {
	defer d.clearInflight(j.key)
	defer func() {
		if r := recover(); r != nil {
			d.reportError(j.key, fmt.Errorf("action panic: %v", r))
		}
	}()

	if d.config.OnDispatch != nil {
		d.config.OnDispatch(j.key)
	}

	if err := j.fn(); err != nil {
		d.reportError(j.key, err)
	}
}

func (d *Dispatcher) reportError(key string, err error) {
	if d.config.OnError != nil {
		d.config.OnError(key, err)
		return
	}
	log.Printf("dispatch: action %q: %v", key, err)
}

func (d *Dispatcher) clearInflight(key string) {
	if !d.config.SingleFlight {
		return
	}
	d.mu.Lock()
	delete(d.inflight, key)
	d.mu.Unlock()
}
