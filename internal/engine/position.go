package engine

import "math"

// microsPerSecond converts seconds to microseconds.
const microsPerSecond = 1e6

// minAccuracyFor floors the sync-accuracy score by device capability so a
// burst of drift on a weak device never reports a spurious zero.
func minAccuracyFor(deviceType DeviceType) float64 {
	switch deviceType {
	case DeviceDesktop:
		return 40
	case DeviceTablet:
		return 30
	case DeviceMobile:
		return 25
	default:
		// Uncalibrated engines assume the weakest floor.
		return 25
	}
}

// CurrentPosition derives the structured musical position from the current
// transport snapshot. Returns nil before Initialize (configuration error,
// kept soft so UI consumers stay resilient) and after Dispose.
func (e *Engine) CurrentPosition() *MusicalPosition {
	snap, offsetUs, ok := e.snapshot()
	if !ok {
		return nil
	}
	return e.positionFrom(snap, offsetUs)
}

// positionFrom computes a MusicalPosition from one transport snapshot.
// Pure with respect to the snapshot; accuracy state is read under the lock.
func (e *Engine) positionFrom(snap TransportSnapshot, offsetUs float64) *MusicalPosition {
	totalBeats := snap.ElapsedSeconds * snap.TempoBPM / 60

	numerator := snap.TimeSignature.Numerator
	wholeBeats := int(math.Floor(totalBeats))
	bars := int(math.Floor(totalBeats / float64(numerator)))
	beats := wholeBeats % numerator
	frac := totalBeats - math.Floor(totalBeats)
	subdivisions := int(frac * float64(e.cfg.SubdivisionResolution))

	return &MusicalPosition{
		AudioTime:     snap.ElapsedSeconds,
		MusicalTime:   snap.ElapsedSeconds + offsetUs/microsPerSecond,
		TotalBeats:    totalBeats,
		Bars:          bars,
		Beats:         beats,
		Subdivisions:  subdivisions,
		TimeSignature: snap.TimeSignature,
		SyncAccuracy:  e.syncAccuracy(),
	}
}

// syncAccuracy scores 0-100 from the most recent drift magnitude relative to
// the configured tolerance, floored at the device-capability minimum.
func (e *Engine) syncAccuracy() float64 {
	e.mu.RLock()
	driftUs := e.lastDriftUs
	deviceType := DeviceType("")
	if e.profile != nil {
		deviceType = e.profile.DeviceType
	}
	e.mu.RUnlock()

	accuracy := 100 - (driftUs/e.cfg.MaxDriftToleranceUs)*100
	return clampScore(math.Max(accuracy, minAccuracyFor(deviceType)))
}

// NextSyncPoint returns the next subdivision boundary strictly greater than
// the current transport time, in fractional seconds (sub-millisecond
// precision). ok is false before Initialize or when the transport reports a
// non-positive tempo.
func (e *Engine) NextSyncPoint() (float64, bool) {
	snap, _, ok := e.snapshot()
	if !ok || snap.TempoBPM <= 0 {
		return 0, false
	}

	// Duration of one subdivision in seconds. At the default resolution of 4
	// the grid stays below one second for any tempo above 15 BPM.
	step := 60 / (snap.TempoBPM * float64(e.cfg.SubdivisionResolution))

	next := (math.Floor(snap.ElapsedSeconds/step) + 1) * step
	if next <= snap.ElapsedSeconds {
		// Guard against float truncation landing exactly on the boundary.
		next += step
	}
	return next, true
}

// clampScore bounds a health/accuracy score to [0, 100].
func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
