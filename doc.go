// Package syncengine keeps a musical transport clock, derived musical
// position, and a set of independently-latent visual consumers aligned in
// time despite clock drift, device-dependent latency, and variable rendering
// load.
//
// # Overview
//
// The engine does not produce audio samples or pixels; it produces timing
// decisions and compensated timestamps consumed by notation players,
// fretboard visualizers, and tempo/transposition controllers. Five concerns
// cooperate behind one facade:
//
//   - Precision timing: transport time + tempo + meter → bars, beats and
//     subdivisions with a synchronization-confidence score
//   - Drift correction: expected-vs-observed comparisons per named source,
//     trend prediction over a bounded history, damped clock-offset corrections
//   - Latency compensation: per-device calibration, load-adaptive offsets,
//     buffer sizing
//   - Visual sync broadcast: a priority-aware fan-out of compensated timing
//     messages to registered consumers
//   - Health and recovery: 0-100 sub-scores, periodic snapshots, a bounded
//     cooldown-gated recovery loop
//
// # Basic Usage
//
// Create an engine, inject a transport clock and start broadcasting:
//
//	eng := syncengine.New(syncengine.Config{})
//	defer eng.Dispose()
//
//	if err := eng.Initialize(clock); err != nil {
//	    log.Fatal(err)
//	}
//
//	eng.RegisterVisualComponent(syncengine.VisualComponent{
//	    ID:       "notation",
//	    Type:     "notation",
//	    Priority: syncengine.PriorityHigh,
//	    IsActive: true,
//	    Callback: func(t syncengine.MusicalTiming) { render(t) },
//	})
//	eng.StartSynchronizedPlayback()
//
// # Timing Semantics
//
// "Correct the clock, never the consumers." Drift corrections adjust one
// internal clock offset; consumers always receive timestamps derived from a
// single consistent transport snapshot per tick, with device-level and
// per-consumer latency offsets applied on top.
//
// # Notifications
//
// The engine publishes a typed notification stream (drift measured and
// corrected, component unregistered, health updated, recovery complete and
// failed). Subscribe channels per kind via Hub(); publishes are non-blocking
// and drop on full channels rather than stalling a tick.
//
// # Thread Safety
//
// All methods are safe for concurrent use. The only mutually-exclusive
// resource is the calibration guard: a second Calibrate while one is in
// flight fails with ErrCalibrationInProgress.
//
// # Example
//
// See examples/basic for a runnable demo with two consumers at different
// priorities and latency offsets.
package syncengine
