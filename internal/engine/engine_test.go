package engine

import (
	"sync"
	"testing"
	"time"
)

// fakeClock is a hand-settable transport for tests.
type fakeClock struct {
	mu      sync.Mutex
	elapsed float64
	bpm     float64
	sig     TimeSignature
}

func newFakeClock(elapsed, bpm float64) *fakeClock {
	return &fakeClock{
		elapsed: elapsed,
		bpm:     bpm,
		sig:     TimeSignature{Numerator: 4, Denominator: 4},
	}
}

func (c *fakeClock) set(elapsed, bpm float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.elapsed = elapsed
	c.bpm = bpm
}

func (c *fakeClock) Snapshot() TransportSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return TransportSnapshot{ElapsedSeconds: c.elapsed, TempoBPM: c.bpm, TimeSignature: c.sig}
}

// quietConfig disables the background loops that would otherwise race test
// assertions (self-scan feeding the corrector, periodic health emissions).
func quietConfig() Config {
	return Config{
		ScanInterval:     -1,
		HealthInterval:   time.Hour,
		RecoveryCooldown: -1,
	}
}

// newTestEngine builds an initialized engine on a fake clock.
func newTestEngine(t *testing.T, cfg Config, elapsed, bpm float64) (*Engine, *fakeClock) {
	t.Helper()
	e := New(cfg)
	t.Cleanup(e.Dispose)

	clock := newFakeClock(elapsed, bpm)
	if err := e.Initialize(clock); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	return e, clock
}

func TestDisposeIsIdempotent(t *testing.T) {
	e, _ := newTestEngine(t, quietConfig(), 0, 120)

	e.Dispose()
	e.Dispose() // must not panic

	if pos := e.CurrentPosition(); pos != nil {
		t.Errorf("expected nil position after Dispose, got %+v", pos)
	}
	if err := e.RegisterVisualComponent(VisualComponent{ID: "x"}); err != ErrDisposed {
		t.Errorf("expected ErrDisposed, got %v", err)
	}
}

func TestDisposeClearsRegistry(t *testing.T) {
	e, _ := newTestEngine(t, quietConfig(), 0, 120)

	e.RegisterVisualComponent(VisualComponent{ID: "a", IsActive: true})
	e.RegisterVisualComponent(VisualComponent{ID: "b", IsActive: true})
	e.Dispose()

	stats := e.BroadcastStats()
	if len(stats.Components) != 0 {
		t.Errorf("expected empty registry after Dispose, got %d components", len(stats.Components))
	}
}

func TestInitializeRejectsNilClock(t *testing.T) {
	e := New(quietConfig())
	defer e.Dispose()

	if err := e.Initialize(nil); err == nil {
		t.Fatal("expected error for nil transport clock")
	}
}
