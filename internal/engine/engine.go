// Package engine implements the audio/visual synchronization core.
//
// This package is INTERNAL - clients use the public API in the parent
// syncengine package. Keeping the implementation here lets it evolve without
// breaking the public contract.
package engine

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// Scheduler task names.
const (
	taskBroadcast = "broadcast"
	taskHealth    = "health"
	taskScan      = "scan"
)

var (
	// ErrNotInitialized is returned by operations that need a transport
	// clock before Initialize has provided one.
	ErrNotInitialized = errors.New("engine not initialized with a transport clock")

	// ErrCalibrationInProgress is returned when Calibrate is called while a
	// previous calibration is still in flight.
	ErrCalibrationInProgress = errors.New("calibration already in progress")

	// ErrDisposed is returned by mutating operations after Dispose.
	ErrDisposed = errors.New("engine is disposed")
)

// TransportSnapshot is one poll of the external transport clock.
type TransportSnapshot struct {
	// ElapsedSeconds is transport time since playback zero
	ElapsedSeconds float64
	// TempoBPM is the current tempo in beats per minute
	TempoBPM float64
	// TimeSignature is the current meter
	TimeSignature TimeSignature
}

// TransportClock is the external transport/playback engine, consumed
// poll-based. Implementations must be safe for concurrent use.
type TransportClock interface {
	Snapshot() TransportSnapshot
}

// Engine keeps a musical transport clock, derived musical position, and a set
// of independently-latent visual consumers aligned in time.
//
// Construct with New, inject the transport with Initialize, then use the
// drift / calibration / broadcast / health surfaces. All methods are safe for
// concurrent use; periodic work runs on scheduler-owned goroutines, each tick
// working from one consistent snapshot taken under the engine lock.
type Engine struct {
	cfg   Config
	hub   *Hub
	sched *scheduler
	log   *slog.Logger

	mu    sync.RWMutex
	clock TransportClock

	// drift correction state
	clockOffsetUs float64
	lastDriftUs   float64 // |drift| of the most recent measurement, any source
	driftRings    map[string]*driftRing

	// latency compensation state
	profile        *DeviceProfile
	compensationUs int64 // load-adapted device offset applied to broadcasts

	// broadcaster state
	components map[string]*VisualComponent
	compStats  map[string]*componentCounters
	ticks      uint64
	playing    bool
	slowUntil  time.Time // broadcast runs at half rate until this instant

	// transport self-scan reference point
	scanWall    time.Time
	scanElapsed float64

	// recovery state
	recoveryAttempts int
	lastRecovery     time.Time
	lastRecoveryOK   bool

	disposed bool

	// calibration single-flight guard (the only mutually-exclusive resource)
	calMu       sync.Mutex
	calibrating bool
}

// New creates an engine with the given configuration. The engine is inert
// until Initialize provides a transport clock.
func New(cfg Config) *Engine {
	return &Engine{
		cfg:        cfg.normalize(),
		hub:        NewHub(),
		sched:      newScheduler(),
		log:        slog.Default(),
		driftRings: make(map[string]*driftRing),
		components: make(map[string]*VisualComponent),
		compStats:  make(map[string]*componentCounters),
	}
}

// Initialize injects the transport clock and starts the health and scan
// loops. Callers own the clock's lifetime; the engine only polls it.
func (e *Engine) Initialize(clock TransportClock) error {
	if clock == nil {
		return errors.New("transport clock cannot be nil")
	}

	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return ErrDisposed
	}
	e.clock = clock
	e.scanWall = time.Now()
	e.scanElapsed = clock.Snapshot().ElapsedSeconds
	e.mu.Unlock()

	e.sched.every(taskHealth, func() time.Duration { return e.cfg.HealthInterval }, e.healthTick)
	if e.cfg.ScanInterval > 0 {
		e.sched.every(taskScan, func() time.Duration { return e.cfg.ScanInterval }, e.scanTick)
	}

	e.log.Info("sync engine initialized",
		"broadcast_interval", e.cfg.BroadcastInterval,
		"health_interval", e.cfg.HealthInterval,
		"scan_interval", e.cfg.ScanInterval,
	)
	return nil
}

// Hub exposes the notification stream for subscribe/unsubscribe.
func (e *Engine) Hub() *Hub {
	return e.hub
}

// snapshot polls the transport under the read lock. ok is false before
// Initialize or after Dispose.
func (e *Engine) snapshot() (TransportSnapshot, float64, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.clock == nil || e.disposed {
		return TransportSnapshot{}, 0, false
	}
	snap := e.clock.Snapshot()
	if snap.TimeSignature.Numerator <= 0 {
		snap.TimeSignature.Numerator = 4
	}
	if snap.TimeSignature.Denominator <= 0 {
		snap.TimeSignature.Denominator = 4
	}
	return snap, e.clockOffsetUs, true
}

// Dispose cancels all scheduled loops, clears the visual-component registry
// and closes the notification hub. Idempotent and never panics; queries after
// Dispose return empty results and mutations return ErrDisposed.
func (e *Engine) Dispose() {
	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return
	}
	e.disposed = true
	e.playing = false
	e.components = make(map[string]*VisualComponent)
	e.compStats = make(map[string]*componentCounters)
	e.mu.Unlock()

	e.sched.cancelAll()
	e.hub.Close()

	e.log.Info("sync engine disposed")
}
