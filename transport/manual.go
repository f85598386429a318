package transport

import (
	"sync"
	"time"

	syncengine "github.com/e7canasta/cadenza-sync"
)

// ManualClock is a wall-clock transport with a settable tempo, for demos and
// hosts without an external transport. Elapsed time advances from Start;
// tempo changes preserve the musical position accumulated so far.
type ManualClock struct {
	mu      sync.RWMutex
	tempo   float64
	timeSig syncengine.TimeSignature
	started time.Time
	elapsed float64 // seconds accumulated before the last tempo change / pause
	running bool
}

// NewManualClock creates a stopped clock at the given tempo in 4/4.
func NewManualClock(tempoBPM float64) *ManualClock {
	return &ManualClock{
		tempo:   tempoBPM,
		timeSig: syncengine.TimeSignature{Numerator: 4, Denominator: 4},
	}
}

// Start begins (or resumes) the transport. Idempotent.
func (c *ManualClock) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return
	}
	c.started = time.Now()
	c.running = true
}

// Stop pauses the transport, freezing the elapsed time.
func (c *ManualClock) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return
	}
	c.elapsed += time.Since(c.started).Seconds()
	c.running = false
}

// SetTempo changes the tempo without disturbing elapsed time.
func (c *ManualClock) SetTempo(bpm float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tempo = bpm
}

// SetTimeSignature changes the meter reported to the engine.
func (c *ManualClock) SetTimeSignature(sig syncengine.TimeSignature) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timeSig = sig
}

// Snapshot implements syncengine.TransportClock.
func (c *ManualClock) Snapshot() syncengine.TransportSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	elapsed := c.elapsed
	if c.running {
		elapsed += time.Since(c.started).Seconds()
	}
	return syncengine.TransportSnapshot{
		ElapsedSeconds: elapsed,
		TempoBPM:       c.tempo,
		TimeSignature:  c.timeSig,
	}
}
