package engine

import "time"

// Sub-score weights for the overall health combination.
const (
	weightAudio       = 0.40
	weightVisual      = 0.30
	weightLatency     = 0.15
	weightPerformance = 0.15
)

// HealthMetrics computes the current health snapshot synchronously from
// internal state. Every score is clamped to [0, 100].
func (e *Engine) HealthMetrics() SyncHealthMetrics {
	e.mu.RLock()

	driftUs := e.lastDriftUs

	var latencyScore float64
	if e.profile != nil {
		latencyScore = e.profile.CalibrationAccuracy
	}

	var (
		activeTotal     int
		activeHealthSum float64
		delivered       uint64
		failed          uint64
	)
	for id, c := range e.components {
		s := e.compStats[id]
		if s == nil {
			continue
		}
		d, f := s.delivered.Load(), s.failed.Load()
		delivered += d
		failed += f
		if !c.IsActive {
			continue
		}
		activeTotal++
		if d+f == 0 {
			// Registered but not yet dispatched to: counts as healthy.
			activeHealthSum += 100
			continue
		}
		activeHealthSum += 100 * float64(d) / float64(d+f)
	}

	attempts := e.recoveryAttempts
	e.mu.RUnlock()

	audioHealth := clampScore(100 - (driftUs/e.cfg.MaxDriftToleranceUs)*100)
	driftLevel := clampScore((driftUs / e.cfg.MaxDriftToleranceUs) * 100)

	visualHealth := 100.0
	if activeTotal > 0 {
		visualHealth = activeHealthSum / float64(activeTotal)
	}

	performance := 100.0
	if delivered+failed > 0 {
		performance = 100 * float64(delivered) / float64(delivered+failed)
	}

	overall := weightAudio*audioHealth +
		weightVisual*visualHealth +
		weightLatency*latencyScore +
		weightPerformance*performance

	return SyncHealthMetrics{
		OverallHealth:       clampScore(overall),
		AudioSyncHealth:     audioHealth,
		VisualSyncHealth:    clampScore(visualHealth),
		DriftLevel:          driftLevel,
		LatencyCompensation: clampScore(latencyScore),
		PerformanceScore:    clampScore(performance),
		RecoveryAttempts:    attempts,
	}
}

// healthTick emits the periodic health_updated notification.
func (e *Engine) healthTick() {
	metrics := e.HealthMetrics()
	e.hub.publish(Notification{Kind: KindHealthUpdated, Health: &metrics})
}

// TriggerRecovery runs the bounded recovery procedure: reset drift history
// and clock offset, open a broadcast slowdown window, and emit
// recovery_complete. Once the attempt counter exceeds the configured maximum
// it emits recovery_failed instead and performs nothing, leaving the engine
// in its last-known state until ResetRecoveryAttempts.
//
// Triggers landing within the cooldown of the previous attempt are coalesced
// into it: no new attempt, no counter increment, the previous result is
// returned.
func (e *Engine) TriggerRecovery() RecoveryResult {
	e.mu.Lock()

	if e.disposed {
		attempts := e.recoveryAttempts
		e.mu.Unlock()
		return RecoveryResult{Success: false, Attempts: attempts}
	}

	now := time.Now()
	if e.cfg.RecoveryCooldown > 0 && !e.lastRecovery.IsZero() &&
		now.Sub(e.lastRecovery) < e.cfg.RecoveryCooldown {
		result := RecoveryResult{Success: e.lastRecoveryOK, Attempts: e.recoveryAttempts}
		e.mu.Unlock()
		return result
	}

	e.recoveryAttempts++
	e.lastRecovery = now
	attempts := e.recoveryAttempts
	exhausted := attempts > e.cfg.MaxRecoveryAttempts
	e.lastRecoveryOK = !exhausted
	if !exhausted {
		e.slowUntil = now.Add(e.cfg.RecoverySlowdown)
	}
	e.mu.Unlock()

	result := RecoveryResult{Success: !exhausted, Attempts: attempts}

	if exhausted {
		e.log.Warn("recovery budget exhausted, suppressing until operator reset",
			"attempts", attempts,
			"max", e.cfg.MaxRecoveryAttempts,
		)
		e.hub.publish(Notification{Kind: KindRecoveryFailed, Recovery: &result})
		return result
	}

	e.resetDriftState()

	e.log.Info("recovery complete",
		"attempts", attempts,
		"slowdown", e.cfg.RecoverySlowdown,
	)
	e.hub.publish(Notification{Kind: KindRecoveryComplete, Recovery: &result})
	return result
}

// ResetRecoveryAttempts is the explicit operator reset for the recovery
// counter; elapsed time alone never resets it.
func (e *Engine) ResetRecoveryAttempts() {
	e.mu.Lock()
	e.recoveryAttempts = 0
	e.lastRecovery = time.Time{}
	e.lastRecoveryOK = false
	e.mu.Unlock()

	e.log.Info("recovery attempt counter reset")
}
