package engine

import "time"

// TimeSignature describes the meter used to derive bars and beats.
type TimeSignature struct {
	// Numerator is the number of beats per bar (e.g. 4 in 4/4)
	Numerator int
	// Denominator is the note value that carries one beat (e.g. 4 in 4/4)
	Denominator int
}

// MusicalPosition is a structured view of elapsed musical time.
//
// Recomputed on every read from the transport snapshot; never persisted.
//
// Invariants:
//   - Bars  = floor(TotalBeats / TimeSignature.Numerator)
//   - Beats = floor(TotalBeats) mod TimeSignature.Numerator
type MusicalPosition struct {
	// AudioTime is the raw transport time in seconds (source of truth)
	AudioTime float64
	// MusicalTime is AudioTime with the drift-corrected clock offset applied
	MusicalTime float64
	// TotalBeats is elapsed beats since transport zero (fractional)
	TotalBeats float64
	// Bars is the zero-based bar index
	Bars int
	// Beats is the zero-based beat index within the current bar
	Beats int
	// Subdivisions is the zero-based subdivision index within the current beat
	Subdivisions int
	// TimeSignature is the meter the indices were derived under
	TimeSignature TimeSignature
	// SyncAccuracy is a 0-100 confidence score (100 = no recent drift)
	SyncAccuracy float64
}

// DriftSeverity classifies the magnitude of a drift measurement.
type DriftSeverity string

const (
	// SeverityLow is |drift| < 10µs
	SeverityLow DriftSeverity = "low"
	// SeverityMedium is 10µs <= |drift| < 100µs
	SeverityMedium DriftSeverity = "medium"
	// SeverityHigh is 100µs <= |drift| < 1000µs
	SeverityHigh DriftSeverity = "high"
	// SeverityCritical is |drift| >= 1000µs
	SeverityCritical DriftSeverity = "critical"
)

// DriftMeasurement records one expected-vs-observed comparison for a source.
//
// Created on every CorrectDrift call. Retained only in the bounded per-source
// history ring used for trend prediction.
type DriftMeasurement struct {
	// Source is the caller-chosen key naming the measured timeline
	Source string
	// ExpectedTime is the predicted timestamp in seconds
	ExpectedTime float64
	// ActualTime is the observed timestamp in seconds
	ActualTime float64
	// Drift is (actual - expected) in microseconds, signed
	Drift float64
	// Severity classifies |Drift| (classification only, does not gate correction)
	Severity DriftSeverity
	// PredictedCorrection is the trend-extrapolated drift in microseconds
	PredictedCorrection float64
	// MeasuredAt is when the measurement was taken
	MeasuredAt time.Time
}

// DeviceType classifies the host platform for latency calibration.
type DeviceType string

const (
	DeviceMobile  DeviceType = "mobile"
	DeviceTablet  DeviceType = "tablet"
	DeviceDesktop DeviceType = "desktop"
)

// DeviceSignal carries the host-environment probes consumed by calibration.
//
// The engine never sniffs the platform itself; the host populates this struct
// (platform string, load samples, audio-stack latency figures) and passes it in.
type DeviceSignal struct {
	// Platform is a descriptive string classified by keyword matching
	// (e.g. a user-agent or runtime identifier)
	Platform string
	// CPUPercent is the current CPU load, 0-100
	CPUPercent float64
	// MemPercent is the current memory pressure, 0-100
	MemPercent float64
	// BaseLatencySec is the host audio stack's base latency in seconds
	BaseLatencySec float64
	// OutputLatencySec is the host audio stack's output latency in seconds
	OutputLatencySec float64
	// RefreshRateHz is the display refresh rate (0 = unknown, 60 assumed)
	RefreshRateHz float64
}

// DeviceProfile is the product of one successful calibration.
//
// One active profile per engine instance; each successful calibration
// overwrites the previous profile.
type DeviceProfile struct {
	// DeviceType is the keyword-matched platform class
	DeviceType DeviceType
	// AudioLatency is the measured audio path latency in microseconds
	AudioLatency int64
	// VisualLatency is the estimated render path latency in microseconds
	VisualLatency int64
	// SystemLatency is the scheduling/system overhead in microseconds
	SystemLatency int64
	// RecommendedBufferSize is the suggested audio buffer size in samples
	RecommendedBufferSize int
	// CompensationOffset is the offset applied to outbound timestamps, microseconds
	CompensationOffset int64
	// CalibrationAccuracy is a 0-100 score from sample-jitter stability
	CalibrationAccuracy float64
	// LastCalibration is when this profile was produced
	LastCalibration time.Time
}

// Priority orders visual consumers for dispatch within a broadcast tick.
//
// Higher priority is a dispatch preference, not a delivery-order guarantee.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityMedium
	PriorityHigh
)

// String returns a human-readable priority name.
func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "high"
	case PriorityMedium:
		return "medium"
	default:
		return "low"
	}
}

// SyncCallback delivers one compensated timing message to a visual consumer.
//
// Contract: a panicking callback is isolated by the broadcaster (recovered,
// logged, counted) and never aborts delivery to the remaining components.
type SyncCallback func(timing MusicalTiming)

// VisualComponent describes one registered visual consumer.
//
// Owned exclusively by the broadcaster registry; mutated only through
// RegisterVisualComponent / UnregisterVisualComponent.
type VisualComponent struct {
	// ID is the unique registry key
	ID string
	// Type is a free-form tag (e.g. "notation", "fretboard", "tempo-control")
	Type string
	// Callback receives the per-tick timing message
	Callback SyncCallback
	// LatencyOffset is the per-consumer compensation in microseconds,
	// added on top of the device-level offset
	LatencyOffset int64
	// Priority is the preferred dispatch order within a tick
	Priority Priority
	// IsActive gates delivery; inactive components are skipped entirely
	IsActive bool
}

// MusicalTiming is the outbound per-tick message pushed to visual consumers.
//
// Constructed per tick per consumer; not retained by the engine.
type MusicalTiming struct {
	// Position is the musical position snapshot the tick was computed from
	Position MusicalPosition
	// Tempo is the transport tempo in BPM at snapshot time
	Tempo float64
	// SyncTimestamp is the compensated timestamp in microseconds
	// (base musical time + device offset + per-component offset)
	SyncTimestamp int64
	// TraceID identifies the broadcast tick for correlation across consumers
	TraceID string
}

// SyncHealthMetrics summarizes how well the engine is meeting its timing goals.
//
// All scores are clamped to [0, 100]. RecoveryAttempts is monotonic and reset
// only by ResetRecoveryAttempts, never by time.
type SyncHealthMetrics struct {
	// OverallHealth is the weighted combination of the sub-scores
	OverallHealth float64
	// AudioSyncHealth is 100 - (currentDrift / maxDriftTolerance) * 100
	AudioSyncHealth float64
	// VisualSyncHealth reflects the proportion of active components
	// delivering without failures
	VisualSyncHealth float64
	// DriftLevel is the current drift magnitude relative to tolerance (100 = at/over)
	DriftLevel float64
	// LatencyCompensation scores the calibration quality (0 = uncalibrated)
	LatencyCompensation float64
	// PerformanceScore reflects broadcast delivery success rate
	PerformanceScore float64
	// RecoveryAttempts counts recovery triggers since the last operator reset
	RecoveryAttempts int
}

// RecoveryResult is the payload of recovery_complete / recovery_failed.
type RecoveryResult struct {
	// Success is false when the attempt budget was exhausted
	Success bool
	// Attempts is the counter value after this trigger
	Attempts int
}

// BroadcastStats is a snapshot of broadcaster delivery accounting.
//
// Conservation: Delivered + Skipped + Failed across components equals
// Ticks * registered components at snapshot time (modulo in-flight ticks).
type BroadcastStats struct {
	// Ticks is the number of broadcast ticks executed
	Ticks uint64
	// Components maps component id to its delivery counters
	Components map[string]ComponentStats
}

// ComponentStats tracks delivery accounting for one registered component.
type ComponentStats struct {
	// Delivered counts callbacks that returned normally
	Delivered uint64
	// Skipped counts ticks where the component was inactive
	Skipped uint64
	// Failed counts callbacks that panicked (recovered and logged)
	Failed uint64
}
