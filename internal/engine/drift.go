package engine

import (
	"math"
	"time"
)

// driftRing is a bounded per-source history of drift values (µs), kept only
// for trend prediction. Oldest entries are overwritten once full.
type driftRing struct {
	values []float64
	next   int
	full   bool
}

func newDriftRing(size int) *driftRing {
	return &driftRing{values: make([]float64, size)}
}

func (r *driftRing) push(v float64) {
	r.values[r.next] = v
	r.next = (r.next + 1) % len(r.values)
	if r.next == 0 {
		r.full = true
	}
}

// ordered returns the recorded values oldest-first.
func (r *driftRing) ordered() []float64 {
	if !r.full {
		out := make([]float64, r.next)
		copy(out, r.values[:r.next])
		return out
	}
	out := make([]float64, 0, len(r.values))
	out = append(out, r.values[r.next:]...)
	out = append(out, r.values[:r.next]...)
	return out
}

func (r *driftRing) reset() {
	r.next = 0
	r.full = false
}

// classifySeverity maps |drift| in µs onto the severity scale.
func classifySeverity(absDriftUs float64) DriftSeverity {
	switch {
	case absDriftUs < 10:
		return SeverityLow
	case absDriftUs < 100:
		return SeverityMedium
	case absDriftUs < 1000:
		return SeverityHigh
	default:
		return SeverityCritical
	}
}

// predictCorrection extrapolates the next drift value from the history:
// latest drift plus the mean successive delta across the ring. A flat
// history predicts the latest value; a consistently rising trend predicts
// beyond it.
func predictCorrection(history []float64, latest float64) float64 {
	if len(history) < 2 {
		return latest
	}
	var deltaSum float64
	for i := 1; i < len(history); i++ {
		deltaSum += history[i] - history[i-1]
	}
	meanDelta := deltaSum / float64(len(history)-1)
	return latest + meanDelta
}

// CorrectDrift compares an expected against an observed timestamp for the
// named source, records the measurement and emits drift_measured. When
// |drift| reaches the correction threshold it additionally updates the
// per-source history, extrapolates the trend, applies a bounded proportional
// correction to the internal clock offset and emits drift_corrected.
//
// Severity is purely a classification of magnitude; only the threshold gates
// correction.
func (e *Engine) CorrectDrift(source string, expectedTime, actualTime float64) DriftMeasurement {
	driftUs := (actualTime - expectedTime) * microsPerSecond
	absUs := math.Abs(driftUs)

	m := DriftMeasurement{
		Source:       source,
		ExpectedTime: expectedTime,
		ActualTime:   actualTime,
		Drift:        driftUs,
		Severity:     classifySeverity(absUs),
		MeasuredAt:   time.Now(),
	}

	var applied float64
	correct := absUs >= e.cfg.CorrectionThresholdUs

	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return m
	}
	e.lastDriftUs = absUs
	if correct {
		ring, ok := e.driftRings[source]
		if !ok {
			ring = newDriftRing(e.cfg.DriftHistorySize)
			e.driftRings[source] = ring
		}
		ring.push(driftUs)

		m.PredictedCorrection = predictCorrection(ring.ordered(), driftUs)

		// Correct against the predicted drift, damped and bounded so a noisy
		// source cannot slew the clock.
		applied = -m.PredictedCorrection * e.cfg.CorrectionGain
		applied = math.Max(-e.cfg.MaxCorrectionUs, math.Min(e.cfg.MaxCorrectionUs, applied))
		e.clockOffsetUs += applied
	}
	e.mu.Unlock()

	e.hub.publish(Notification{Kind: KindDriftMeasured, Drift: &m})

	if correct {
		e.log.Debug("drift corrected",
			"source", source,
			"drift_us", driftUs,
			"severity", string(m.Severity),
			"predicted_us", m.PredictedCorrection,
			"applied_us", applied,
		)
		e.hub.publish(Notification{
			Kind:              KindDriftCorrected,
			Drift:             &m,
			AppliedCorrection: applied,
		})
	}

	return m
}

// currentDriftUs returns |drift| of the most recent measurement.
func (e *Engine) currentDriftUs() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastDriftUs
}

// scanTick self-measures transport drift: it predicts where the transport
// should be from the wall clock since the last scan and compares that with
// the adapter's answer, feeding the corrector under the "transport" source.
func (e *Engine) scanTick() {
	e.mu.Lock()
	if e.clock == nil || e.disposed {
		e.mu.Unlock()
		return
	}
	now := time.Now()
	expected := e.scanElapsed + now.Sub(e.scanWall).Seconds()
	snap := e.clock.Snapshot()
	e.scanWall = now
	e.scanElapsed = snap.ElapsedSeconds
	e.mu.Unlock()

	e.CorrectDrift("transport", expected, snap.ElapsedSeconds)
}

// resetDriftState clears every source history and the accumulated clock
// offset. Used by recovery.
func (e *Engine) resetDriftState() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, ring := range e.driftRings {
		ring.reset()
	}
	e.clockOffsetUs = 0
	e.lastDriftUs = 0
}
