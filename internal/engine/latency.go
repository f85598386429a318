package engine

import (
	"context"
	"math"
	"strings"
	"time"
)

// Platform keyword tables for device classification. Matching is
// case-insensitive substring search, phone tokens checked before tablet so
// "iPhone" never classifies as tablet via a shared vendor token.
var (
	mobileTokens = []string{"iphone", "android", "mobile", "phone", "ipod"}
	tabletTokens = []string{"ipad", "tablet", "kindle", "silk"}
)

// DetectDeviceType classifies a platform string into mobile/tablet/desktop.
// Unknown platforms default to desktop.
func DetectDeviceType(signal DeviceSignal) DeviceType {
	platform := strings.ToLower(signal.Platform)
	for _, token := range tabletTokens {
		if strings.Contains(platform, token) {
			return DeviceTablet
		}
	}
	for _, token := range mobileTokens {
		if strings.Contains(platform, token) {
			return DeviceMobile
		}
	}
	return DeviceDesktop
}

// OptimalBufferSize maps a total latency figure (µs) to an audio buffer size
// in samples.
func OptimalBufferSize(latencyUs int64) int {
	switch {
	case latencyUs < 5000:
		return 128
	case latencyUs < 10000:
		return 256
	case latencyUs < 20000:
		return 512
	default:
		return 1024
	}
}

// Calibrate measures the device latency profile and installs it as the
// engine's active profile.
//
// Mutually exclusive: a second call while one is in flight fails fast with
// ErrCalibrationInProgress (the caller must await completion before
// retrying). Calibration is the engine's only awaited operation; it holds
// the single-flight flag, not the engine lock, across its sampling sleeps.
func (e *Engine) Calibrate(ctx context.Context, signal DeviceSignal) (*DeviceProfile, error) {
	e.calMu.Lock()
	if e.calibrating {
		e.calMu.Unlock()
		return nil, ErrCalibrationInProgress
	}
	e.calibrating = true
	e.calMu.Unlock()

	defer func() {
		e.calMu.Lock()
		e.calibrating = false
		e.calMu.Unlock()
	}()

	e.mu.RLock()
	disposed := e.disposed
	e.mu.RUnlock()
	if disposed {
		return nil, ErrDisposed
	}

	deviceType := DetectDeviceType(signal)

	// Audio path latency comes straight from the host audio stack figures.
	audioUs := int64((signal.BaseLatencySec + signal.OutputLatencySec) * microsPerSecond)
	if audioUs < 0 {
		audioUs = 0
	}

	// Visual path latency: one and a half refresh intervals (frame queue plus
	// scan-out), 60Hz assumed when the host does not report a rate.
	refresh := signal.RefreshRateHz
	if refresh <= 0 {
		refresh = 60
	}
	visualUs := int64(1.5 * microsPerSecond / refresh)

	// System overhead: probe the transport/scheduler repeatedly and score the
	// jitter of the probe intervals. The probes double as the accuracy input.
	systemUs, accuracy, err := e.probeSystemLatency(ctx)
	if err != nil {
		return nil, err
	}

	// Buffer sizing follows the audio path only; the render path does not
	// constrain the audio callback.
	profile := &DeviceProfile{
		DeviceType:            deviceType,
		AudioLatency:          audioUs,
		VisualLatency:         visualUs,
		SystemLatency:         systemUs,
		RecommendedBufferSize: OptimalBufferSize(audioUs + systemUs),
		CompensationOffset:    audioUs + visualUs,
		CalibrationAccuracy:   accuracy,
		LastCalibration:       time.Now(),
	}

	e.mu.Lock()
	e.profile = profile
	e.compensationUs = profile.CompensationOffset
	e.mu.Unlock()

	e.log.Info("device calibrated",
		"device_type", string(deviceType),
		"audio_us", audioUs,
		"visual_us", visualUs,
		"system_us", systemUs,
		"buffer_samples", profile.RecommendedBufferSize,
		"accuracy", accuracy,
	)

	return profile, nil
}

// probeSystemLatency sleeps through N short intervals and measures how far
// the wall clock overshoots each one. The mean overshoot is the system
// latency estimate; the jitter of the overshoots, relative to the interval,
// scores calibration accuracy (steady scheduling = high accuracy).
func (e *Engine) probeSystemLatency(ctx context.Context) (int64, float64, error) {
	var (
		gap        = e.cfg.CalibrationSampleGap
		overshoots = make([]float64, 0, e.cfg.CalibrationSamples)
	)
	for i := 0; i < e.cfg.CalibrationSamples; i++ {
		start := time.Now()
		select {
		case <-ctx.Done():
			return 0, 0, ctx.Err()
		case <-time.After(gap):
		}
		overshootUs := float64(time.Since(start)-gap) / float64(time.Microsecond)
		if overshootUs < 0 {
			overshootUs = 0
		}
		overshoots = append(overshoots, overshootUs)
	}

	var sum float64
	for _, v := range overshoots {
		sum += v
	}
	mean := sum / float64(len(overshoots))

	var sumSquares float64
	for _, v := range overshoots {
		diff := v - mean
		sumSquares += diff * diff
	}
	stddev := math.Sqrt(sumSquares / float64(len(overshoots)))

	// Accuracy: jitter of the probe overshoots scored against the probe
	// interval. A stddev at or above 20% of the interval scores zero, but the
	// floor keeps a completed calibration from reporting as useless.
	gapUs := float64(gap) / float64(time.Microsecond)
	accuracy := clampScore(100 - (stddev/(0.20*gapUs))*100)
	accuracy = math.Max(accuracy, 20)

	return int64(mean), accuracy, nil
}

// AdaptToSystemLoad retunes the compensation offset for the current system
// load. The offset grows monotonically with load from a +3% floor at idle,
// bounded at twice the calibrated base so sustained pressure cannot run the
// offset away. Returns the adapted offset in microseconds.
//
// Without a calibrated profile the offset stays zero; there is no base to
// scale.
func (e *Engine) AdaptToSystemLoad(cpuPct, memPct float64) int64 {
	load := math.Max(clampScore(cpuPct), clampScore(memPct)) / 100

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.profile == nil {
		return e.compensationUs
	}

	base := float64(e.profile.CompensationOffset)
	// 3% headroom at idle, up to +100% under full load.
	adapted := base * (1.03 + 0.97*load)
	bounded := math.Min(adapted, base*2)
	e.compensationUs = int64(bounded)
	return e.compensationUs
}

// Profile returns the active device profile, nil before the first
// successful calibration.
func (e *Engine) Profile() *DeviceProfile {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.profile == nil {
		return nil
	}
	p := *e.profile
	return &p
}
