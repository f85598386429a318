package transport

import (
	"math"
	"testing"
	"time"

	"github.com/scgolang/syncosc"
)

func TestOSCClockZeroBeforeFirstPulse(t *testing.T) {
	c := NewOSCClock()

	snap := c.Snapshot()
	if snap.ElapsedSeconds != 0 {
		t.Errorf("ElapsedSeconds = %v, want 0", snap.ElapsedSeconds)
	}
	if snap.TempoBPM != 0 {
		t.Errorf("TempoBPM = %v, want 0", snap.TempoBPM)
	}
}

func TestOSCClockAccumulatesPulses(t *testing.T) {
	c := NewOSCClock()

	c.applyPulse(syncosc.Pulse{Tempo: 120, Count: 0})
	if got := c.Snapshot().TempoBPM; got != 120 {
		t.Fatalf("TempoBPM = %v after first pulse, want 120", got)
	}

	// Let wall time pass so the next pulse closes out a real interval.
	pulseDur := syncosc.GetPulseDuration(120)
	time.Sleep(pulseDur + 2*time.Millisecond)
	c.applyPulse(syncosc.Pulse{Tempo: 120, Count: 1})

	got := c.Snapshot().ElapsedSeconds
	want := pulseDur.Seconds()
	// The interval is capped at one pulse duration even though we overslept.
	if math.Abs(got-want) > pulseDur.Seconds()*0.5 {
		t.Errorf("ElapsedSeconds = %v, want about %v", got, want)
	}
}

func TestOSCClockInterpolationIsCapped(t *testing.T) {
	c := NewOSCClock()
	c.applyPulse(syncosc.Pulse{Tempo: 120, Count: 0})

	pulseDur := syncosc.GetPulseDuration(120)
	time.Sleep(3*pulseDur + 2*time.Millisecond)

	// A silent master must freeze the clock at one pulse of interpolation,
	// never run ahead of the pulses it actually received.
	got := c.Snapshot().ElapsedSeconds
	if got > pulseDur.Seconds()+1e-6 {
		t.Errorf("ElapsedSeconds = %v exceeds one pulse %v", got, pulseDur.Seconds())
	}
}

func TestOSCClockTempoChangeOnPulse(t *testing.T) {
	c := NewOSCClock()
	c.applyPulse(syncosc.Pulse{Tempo: 120, Count: 0})
	c.applyPulse(syncosc.Pulse{Tempo: 90, Count: 1})

	if got := c.Snapshot().TempoBPM; got != 90 {
		t.Errorf("TempoBPM = %v, want 90", got)
	}
}
