package syncengine

import "github.com/e7canasta/cadenza-sync/internal/engine"

// Public API - Re-export internal types as stable contract

// Config carries the engine tunables; the zero value is a working 60Hz engine.
type Config = engine.Config

// TransportClock is the external transport/playback engine, polled for
// elapsed time, tempo and meter.
type TransportClock = engine.TransportClock

// TransportSnapshot is one poll of the transport clock.
type TransportSnapshot = engine.TransportSnapshot

// TimeSignature describes the meter used to derive bars and beats.
type TimeSignature = engine.TimeSignature

// MusicalPosition is a structured view of elapsed musical time.
type MusicalPosition = engine.MusicalPosition

// MusicalTiming is the per-tick message pushed to visual consumers.
type MusicalTiming = engine.MusicalTiming

// DriftMeasurement records one expected-vs-observed comparison for a source.
type DriftMeasurement = engine.DriftMeasurement

// DriftSeverity classifies the magnitude of a drift measurement.
type DriftSeverity = engine.DriftSeverity

// Drift severity scale, on |drift| in microseconds.
const (
	SeverityLow      = engine.SeverityLow
	SeverityMedium   = engine.SeverityMedium
	SeverityHigh     = engine.SeverityHigh
	SeverityCritical = engine.SeverityCritical
)

// DeviceSignal carries the host-environment probes consumed by calibration.
type DeviceSignal = engine.DeviceSignal

// DeviceProfile is the product of one successful calibration.
type DeviceProfile = engine.DeviceProfile

// DeviceType classifies the host platform for latency calibration.
type DeviceType = engine.DeviceType

// Device classes produced by keyword matching on the platform signal.
const (
	DeviceMobile  = engine.DeviceMobile
	DeviceTablet  = engine.DeviceTablet
	DeviceDesktop = engine.DeviceDesktop
)

// VisualComponent describes one registered visual consumer.
type VisualComponent = engine.VisualComponent

// SyncCallback delivers one compensated timing message to a consumer.
type SyncCallback = engine.SyncCallback

// Priority orders visual consumers for dispatch within a broadcast tick.
type Priority = engine.Priority

// Dispatch priorities, high first within a tick (preference, not a guarantee).
const (
	PriorityLow    = engine.PriorityLow
	PriorityMedium = engine.PriorityMedium
	PriorityHigh   = engine.PriorityHigh
)

// SyncHealthMetrics summarizes how well the engine meets its timing goals.
type SyncHealthMetrics = engine.SyncHealthMetrics

// RecoveryResult is the payload of recovery_complete / recovery_failed.
type RecoveryResult = engine.RecoveryResult

// BroadcastStats is a snapshot of broadcaster delivery accounting.
type BroadcastStats = engine.BroadcastStats

// ComponentStats tracks delivery accounting for one registered component.
type ComponentStats = engine.ComponentStats

// Notification is one event on the engine's notification stream.
type Notification = engine.Notification

// NotificationKind is the closed enum of events the engine publishes.
type NotificationKind = engine.NotificationKind

// Notification kinds.
const (
	KindDriftMeasured         = engine.KindDriftMeasured
	KindDriftCorrected        = engine.KindDriftCorrected
	KindComponentUnregistered = engine.KindComponentUnregistered
	KindHealthUpdated         = engine.KindHealthUpdated
	KindRecoveryComplete      = engine.KindRecoveryComplete
	KindRecoveryFailed        = engine.KindRecoveryFailed
)

// Hub fans notifications out to per-kind subscriber channels.
type Hub = engine.Hub

// HubStats is a snapshot of notification delivery accounting.
type HubStats = engine.HubStats

// Public API errors - Re-export internal errors as stable contract
var (
	ErrNotInitialized        = engine.ErrNotInitialized
	ErrCalibrationInProgress = engine.ErrCalibrationInProgress
	ErrDisposed              = engine.ErrDisposed
	ErrHubClosed             = engine.ErrHubClosed
	ErrSubscriberExists      = engine.ErrSubscriberExists
	ErrSubscriberNotFound    = engine.ErrSubscriberNotFound
	ErrNilChannel            = engine.ErrNilChannel
)

// Kinds lists every notification kind, in a stable order.
func Kinds() []NotificationKind {
	return engine.Kinds()
}

// DetectDeviceType classifies a platform string into mobile/tablet/desktop.
func DetectDeviceType(signal DeviceSignal) DeviceType {
	return engine.DetectDeviceType(signal)
}

// OptimalBufferSize maps a total latency figure (µs) to an audio buffer size
// in samples.
func OptimalBufferSize(latencyUs int64) int {
	return engine.OptimalBufferSize(latencyUs)
}
