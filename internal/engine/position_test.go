package engine

import (
	"math"
	"testing"
)

func TestMusicalPositionDerivation(t *testing.T) {
	tests := []struct {
		name       string
		elapsed    float64
		bpm        float64
		numerator  int
		totalBeats float64
		bars       int
		beats      int
		subs       int
	}{
		{"two seconds at 120 in 4/4", 2.0, 120, 4, 4.0, 1, 0, 0},
		{"half second at 120 in 4/4", 0.5, 120, 4, 1.0, 0, 1, 0},
		{"quarter second at 120 in 4/4", 0.25, 120, 4, 0.5, 0, 0, 2},
		{"two seconds at 90 in 3/4", 2.0, 90, 3, 3.0, 1, 0, 0},
		{"transport at zero", 0, 120, 4, 0, 0, 0, 0},
		{"mid bar at 60 in 4/4", 5.0, 60, 4, 5.0, 1, 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, clock := newTestEngine(t, quietConfig(), tt.elapsed, tt.bpm)
			clock.sig = TimeSignature{Numerator: tt.numerator, Denominator: 4}

			pos := e.CurrentPosition()
			if pos == nil {
				t.Fatal("expected a position from an initialized engine")
			}
			if math.Abs(pos.TotalBeats-tt.totalBeats) > 1e-9 {
				t.Errorf("TotalBeats = %v, want %v", pos.TotalBeats, tt.totalBeats)
			}
			if pos.Bars != tt.bars {
				t.Errorf("Bars = %d, want %d", pos.Bars, tt.bars)
			}
			if pos.Beats != tt.beats {
				t.Errorf("Beats = %d, want %d", pos.Beats, tt.beats)
			}
			if pos.Subdivisions != tt.subs {
				t.Errorf("Subdivisions = %d, want %d", pos.Subdivisions, tt.subs)
			}
		})
	}
}

func TestPositionBeforeInitialize(t *testing.T) {
	e := New(quietConfig())
	defer e.Dispose()

	if pos := e.CurrentPosition(); pos != nil {
		t.Errorf("expected nil position before Initialize, got %+v", pos)
	}
	if _, ok := e.NextSyncPoint(); ok {
		t.Error("expected no sync point before Initialize")
	}
}

func TestNextSyncPointQuantization(t *testing.T) {
	// 120 BPM at resolution 4: subdivision grid of 0.125s.
	e, _ := newTestEngine(t, quietConfig(), 2.0, 120)

	next, ok := e.NextSyncPoint()
	if !ok {
		t.Fatal("expected a sync point")
	}
	if math.Abs(next-2.125) > 1e-9 {
		t.Errorf("next sync point = %v, want 2.125", next)
	}
}

func TestNextSyncPointStrictlyAhead(t *testing.T) {
	elapsedValues := []float64{0, 0.001, 1.9999, 2.0, 2.1249999, 7.333, 59.875}

	for _, elapsed := range elapsedValues {
		e, _ := newTestEngine(t, quietConfig(), elapsed, 120)

		next, ok := e.NextSyncPoint()
		if !ok {
			t.Fatalf("elapsed=%v: expected a sync point", elapsed)
		}
		if next <= elapsed {
			t.Errorf("elapsed=%v: sync point %v not strictly ahead", elapsed, next)
		}
		if next >= elapsed+1 {
			t.Errorf("elapsed=%v: sync point %v more than a second ahead", elapsed, next)
		}
		// Sub-millisecond precision must survive: the grid itself sits on
		// 0.125s boundaries, so the fractional part must not be truncated.
		if rem := math.Mod(next, 0.125); math.Min(rem, 0.125-rem) > 1e-9 {
			t.Errorf("elapsed=%v: sync point %v off the subdivision grid", elapsed, next)
		}
	}
}

func TestNextSyncPointNeedsTempo(t *testing.T) {
	e, clock := newTestEngine(t, quietConfig(), 1.0, 120)
	clock.set(1.0, 0)

	if _, ok := e.NextSyncPoint(); ok {
		t.Error("expected no sync point at zero tempo")
	}
}

func TestSyncAccuracyDegradesWithDrift(t *testing.T) {
	e, _ := newTestEngine(t, quietConfig(), 1.0, 120)

	clean := e.CurrentPosition()
	if clean.SyncAccuracy != 100 {
		t.Fatalf("expected 100 accuracy with no drift, got %v", clean.SyncAccuracy)
	}

	// 2500µs drift against the default 5000µs tolerance.
	e.CorrectDrift("test", 1.0, 1.0025)
	degraded := e.CurrentPosition()
	if degraded.SyncAccuracy >= clean.SyncAccuracy {
		t.Errorf("accuracy did not degrade: %v", degraded.SyncAccuracy)
	}

	// A full second of drift must floor at the device minimum, never zero.
	e.CorrectDrift("test", 1.0, 2.0)
	floored := e.CurrentPosition()
	if floored.SyncAccuracy <= 0 {
		t.Errorf("accuracy reported %v, expected device floor above zero", floored.SyncAccuracy)
	}
}
