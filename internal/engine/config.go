package engine

import "time"

// Config carries the engine tunables.
//
// Zero values are replaced with defaults by normalize(); a zero Config is a
// working 60Hz engine with the documented thresholds.
type Config struct {
	// SubdivisionResolution is the number of subdivisions per beat (default 4).
	// Sync points are quantized to this grid; at the default resolution the
	// grid stays sub-second for any tempo above 15 BPM.
	SubdivisionResolution int

	// MaxDriftToleranceUs is the drift magnitude (µs) treated as fully
	// unhealthy when scoring audio sync health (default 5000).
	MaxDriftToleranceUs float64

	// CorrectionThresholdUs is the |drift| (µs) below which measurements are
	// recorded but no correction is applied (default 10).
	CorrectionThresholdUs float64

	// DriftHistorySize bounds the per-source measurement ring (default 10).
	DriftHistorySize int

	// CorrectionGain scales the predicted correction before it is applied to
	// the clock offset (default 0.25). Keeps the corrector from oscillating.
	CorrectionGain float64

	// MaxCorrectionUs bounds a single applied correction (default 2000).
	MaxCorrectionUs float64

	// BroadcastInterval is the visual sync tick period (default 16ms, ~60Hz).
	BroadcastInterval time.Duration

	// HealthInterval is the health_updated emission period (default 1s).
	HealthInterval time.Duration

	// ScanInterval is the transport self-scan period (default 250ms).
	// The scan compares wall-clock-predicted transport time against the
	// adapter and feeds the drift corrector. Negative disables the scan.
	ScanInterval time.Duration

	// MaxRecoveryAttempts bounds recovery before recovery_failed (default 3).
	MaxRecoveryAttempts int

	// RecoveryCooldown debounces recovery triggers: a trigger landing within
	// the cooldown of the previous attempt is coalesced into it (default
	// 500ms, negative disables the debounce).
	RecoveryCooldown time.Duration

	// RecoverySlowdown is how long recovery runs the broadcast loop at half
	// rate to shed load (default 2s).
	RecoverySlowdown time.Duration

	// CalibrationSamples is the number of transport probes taken per
	// calibration (default 8).
	CalibrationSamples int

	// CalibrationSampleGap is the pause between calibration probes (default 5ms).
	CalibrationSampleGap time.Duration
}

// normalize fills zero fields with defaults and clamps nonsense values.
func (c Config) normalize() Config {
	if c.SubdivisionResolution <= 0 {
		c.SubdivisionResolution = 4
	}
	if c.MaxDriftToleranceUs <= 0 {
		c.MaxDriftToleranceUs = 5000
	}
	if c.CorrectionThresholdUs <= 0 {
		c.CorrectionThresholdUs = 10
	}
	if c.DriftHistorySize <= 0 {
		c.DriftHistorySize = 10
	}
	if c.CorrectionGain <= 0 || c.CorrectionGain > 1 {
		c.CorrectionGain = 0.25
	}
	if c.MaxCorrectionUs <= 0 {
		c.MaxCorrectionUs = 2000
	}
	if c.BroadcastInterval <= 0 {
		c.BroadcastInterval = 16 * time.Millisecond
	}
	if c.HealthInterval <= 0 {
		c.HealthInterval = time.Second
	}
	if c.ScanInterval == 0 {
		c.ScanInterval = 250 * time.Millisecond
	}
	if c.MaxRecoveryAttempts <= 0 {
		c.MaxRecoveryAttempts = 3
	}
	if c.RecoveryCooldown == 0 {
		c.RecoveryCooldown = 500 * time.Millisecond
	} else if c.RecoveryCooldown < 0 {
		c.RecoveryCooldown = 0
	}
	if c.RecoverySlowdown <= 0 {
		c.RecoverySlowdown = 2 * time.Second
	}
	if c.CalibrationSamples <= 0 {
		c.CalibrationSamples = 8
	}
	if c.CalibrationSampleGap <= 0 {
		c.CalibrationSampleGap = 5 * time.Millisecond
	}
	return c
}
