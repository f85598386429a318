package engine

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestUnregisterEmitsOnceAndIsIdempotent(t *testing.T) {
	e, _ := newTestEngine(t, quietConfig(), 0, 120)

	unregistered := make(chan Notification, 4)
	e.Hub().Subscribe(KindComponentUnregistered, "test", unregistered)

	e.RegisterVisualComponent(VisualComponent{ID: "fretboard", IsActive: true})
	e.UnregisterVisualComponent("fretboard")

	select {
	case n := <-unregistered:
		if n.ComponentID != "fretboard" {
			t.Errorf("ComponentID = %q, want fretboard", n.ComponentID)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for component_unregistered")
	}

	// Second unregister of the same id: no-op, no notification.
	e.UnregisterVisualComponent("fretboard")
	select {
	case n := <-unregistered:
		t.Fatalf("unexpected notification for idempotent unregister: %+v", n)
	case <-time.After(50 * time.Millisecond):
	}

	// Unknown id: also silent.
	e.UnregisterVisualComponent("never-registered")
	select {
	case n := <-unregistered:
		t.Fatalf("unexpected notification for unknown id: %+v", n)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestRegisterOverwritesByID(t *testing.T) {
	e, _ := newTestEngine(t, quietConfig(), 2.0, 120)

	var first, second atomic.Uint64
	e.RegisterVisualComponent(VisualComponent{
		ID: "notation", IsActive: true,
		Callback: func(MusicalTiming) { first.Add(1) },
	})
	e.RegisterVisualComponent(VisualComponent{
		ID: "notation", IsActive: true,
		Callback: func(MusicalTiming) { second.Add(1) },
	})

	e.broadcastTick()

	if first.Load() != 0 {
		t.Error("overwritten callback was invoked")
	}
	if second.Load() != 1 {
		t.Errorf("replacement callback invoked %d times, want 1", second.Load())
	}
}

func TestInactiveComponentNeverInvoked(t *testing.T) {
	e, _ := newTestEngine(t, quietConfig(), 2.0, 120)

	var active, inactive atomic.Uint64
	e.RegisterVisualComponent(VisualComponent{
		ID: "active", IsActive: true,
		Callback: func(MusicalTiming) { active.Add(1) },
	})
	e.RegisterVisualComponent(VisualComponent{
		ID: "inactive", IsActive: false,
		Callback: func(MusicalTiming) { inactive.Add(1) },
	})

	for i := 0; i < 5; i++ {
		e.broadcastTick()
	}

	if active.Load() != 5 {
		t.Errorf("active callback invoked %d times, want 5", active.Load())
	}
	if inactive.Load() != 0 {
		t.Errorf("inactive callback invoked %d times, want 0", inactive.Load())
	}

	stats := e.BroadcastStats()
	if stats.Components["inactive"].Skipped != 5 {
		t.Errorf("inactive Skipped = %d, want 5", stats.Components["inactive"].Skipped)
	}
	if stats.Components["active"].Delivered != 5 {
		t.Errorf("active Delivered = %d, want 5", stats.Components["active"].Delivered)
	}
}

func TestPanickingCallbackIsIsolated(t *testing.T) {
	e, _ := newTestEngine(t, quietConfig(), 2.0, 120)

	var delivered atomic.Uint64
	e.RegisterVisualComponent(VisualComponent{
		ID: "broken", Priority: PriorityHigh, IsActive: true,
		Callback: func(MusicalTiming) { panic("render failure") },
	})
	e.RegisterVisualComponent(VisualComponent{
		ID: "healthy", Priority: PriorityLow, IsActive: true,
		Callback: func(MusicalTiming) { delivered.Add(1) },
	})

	// The high-priority panicker dispatches first and must not abort the tick.
	e.broadcastTick()
	e.broadcastTick()

	if delivered.Load() != 2 {
		t.Errorf("healthy component received %d messages, want 2", delivered.Load())
	}

	stats := e.BroadcastStats()
	if stats.Components["broken"].Failed != 2 {
		t.Errorf("broken Failed = %d, want 2", stats.Components["broken"].Failed)
	}
	if stats.Components["broken"].Delivered != 0 {
		t.Errorf("broken Delivered = %d, want 0", stats.Components["broken"].Delivered)
	}
}

func TestDispatchPrefersHighPriority(t *testing.T) {
	e, _ := newTestEngine(t, quietConfig(), 2.0, 120)

	var (
		mu    sync.Mutex
		order []string
	)
	record := func(id string) SyncCallback {
		return func(MusicalTiming) {
			mu.Lock()
			order = append(order, id)
			mu.Unlock()
		}
	}

	e.RegisterVisualComponent(VisualComponent{ID: "low", Priority: PriorityLow, IsActive: true, Callback: record("low")})
	e.RegisterVisualComponent(VisualComponent{ID: "high", Priority: PriorityHigh, IsActive: true, Callback: record("high")})
	e.RegisterVisualComponent(VisualComponent{ID: "medium", Priority: PriorityMedium, IsActive: true, Callback: record("medium")})

	e.broadcastTick()

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 3 {
		t.Fatalf("dispatched %d callbacks, want 3", len(order))
	}
	if order[0] != "high" || order[1] != "medium" || order[2] != "low" {
		t.Errorf("dispatch order = %v, want [high medium low]", order)
	}
}

func TestTimingCarriesPerComponentOffset(t *testing.T) {
	e, _ := newTestEngine(t, quietConfig(), 2.0, 120)

	timings := make(chan MusicalTiming, 2)
	e.RegisterVisualComponent(VisualComponent{
		ID: "near", IsActive: true, LatencyOffset: 0,
		Callback: func(tm MusicalTiming) { timings <- tm },
	})
	e.RegisterVisualComponent(VisualComponent{
		ID: "far", IsActive: true, LatencyOffset: 7500,
		Callback: func(tm MusicalTiming) { timings <- tm },
	})

	e.broadcastTick()

	a, b := <-timings, <-timings
	diff := a.SyncTimestamp - b.SyncTimestamp
	if diff < 0 {
		diff = -diff
	}
	if diff != 7500 {
		t.Errorf("timestamp spread = %dµs, want 7500", diff)
	}
	if a.TraceID == "" || a.TraceID != b.TraceID {
		t.Errorf("expected a shared trace id per tick, got %q and %q", a.TraceID, b.TraceID)
	}
	if a.Tempo != 120 {
		t.Errorf("Tempo = %v, want 120", a.Tempo)
	}
}

func TestStartSynchronizedPlayback(t *testing.T) {
	cfg := quietConfig()
	cfg.BroadcastInterval = 10 * time.Millisecond
	e, _ := newTestEngine(t, cfg, 2.0, 120)

	ticks := make(chan MusicalTiming, 64)
	e.RegisterVisualComponent(VisualComponent{
		ID: "notation", IsActive: true,
		Callback: func(tm MusicalTiming) { ticks <- tm },
	})

	if err := e.StartSynchronizedPlayback(); err != nil {
		t.Fatalf("StartSynchronizedPlayback failed: %v", err)
	}
	// Idempotent while running.
	if err := e.StartSynchronizedPlayback(); err != nil {
		t.Fatalf("second StartSynchronizedPlayback failed: %v", err)
	}

	select {
	case tm := <-ticks:
		if tm.Position.TotalBeats != 4 {
			t.Errorf("TotalBeats = %v, want 4", tm.Position.TotalBeats)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for broadcast tick")
	}
}

func TestStartRequiresInitialize(t *testing.T) {
	e := New(quietConfig())
	defer e.Dispose()

	if err := e.StartSynchronizedPlayback(); err != ErrNotInitialized {
		t.Errorf("error = %v, want ErrNotInitialized", err)
	}
}

func TestSetComponentActive(t *testing.T) {
	e, _ := newTestEngine(t, quietConfig(), 2.0, 120)

	var count atomic.Uint64
	e.RegisterVisualComponent(VisualComponent{
		ID: "toggle", IsActive: false,
		Callback: func(MusicalTiming) { count.Add(1) },
	})

	e.broadcastTick()
	e.SetComponentActive("toggle", true)
	e.broadcastTick()

	if count.Load() != 1 {
		t.Errorf("callback invoked %d times, want 1", count.Load())
	}
}
