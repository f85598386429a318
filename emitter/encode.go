package emitter

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	syncengine "github.com/e7canasta/cadenza-sync"
)

// Wire DTOs. The engine's types stay tag-free; the emitter owns the wire
// shape so the broker contract can evolve without touching the core.

type wireNotification struct {
	Kind                string        `json:"kind" msgpack:"kind"`
	TraceID             string        `json:"trace_id" msgpack:"trace_id"`
	EmittedAt           time.Time     `json:"emitted_at" msgpack:"emitted_at"`
	Drift               *wireDrift    `json:"drift,omitempty" msgpack:"drift,omitempty"`
	AppliedCorrectionUs float64       `json:"applied_correction_us,omitempty" msgpack:"applied_correction_us,omitempty"`
	ComponentID         string        `json:"component_id,omitempty" msgpack:"component_id,omitempty"`
	Health              *wireHealth   `json:"health,omitempty" msgpack:"health,omitempty"`
	Recovery            *wireRecovery `json:"recovery,omitempty" msgpack:"recovery,omitempty"`
}

type wireDrift struct {
	Source                string  `json:"source" msgpack:"source"`
	ExpectedTime          float64 `json:"expected_time" msgpack:"expected_time"`
	ActualTime            float64 `json:"actual_time" msgpack:"actual_time"`
	DriftUs               float64 `json:"drift_us" msgpack:"drift_us"`
	Severity              string  `json:"severity" msgpack:"severity"`
	PredictedCorrectionUs float64 `json:"predicted_correction_us" msgpack:"predicted_correction_us"`
}

type wireHealth struct {
	OverallHealth       float64 `json:"overall_health" msgpack:"overall_health"`
	AudioSyncHealth     float64 `json:"audio_sync_health" msgpack:"audio_sync_health"`
	VisualSyncHealth    float64 `json:"visual_sync_health" msgpack:"visual_sync_health"`
	DriftLevel          float64 `json:"drift_level" msgpack:"drift_level"`
	LatencyCompensation float64 `json:"latency_compensation" msgpack:"latency_compensation"`
	PerformanceScore    float64 `json:"performance_score" msgpack:"performance_score"`
	RecoveryAttempts    int     `json:"recovery_attempts" msgpack:"recovery_attempts"`
}

type wireRecovery struct {
	Success  bool `json:"success" msgpack:"success"`
	Attempts int  `json:"attempts" msgpack:"attempts"`
}

// toWire flattens a hub notification into its wire shape.
func toWire(n syncengine.Notification) wireNotification {
	w := wireNotification{
		Kind:                string(n.Kind),
		TraceID:             n.TraceID,
		EmittedAt:           n.EmittedAt,
		AppliedCorrectionUs: n.AppliedCorrection,
		ComponentID:         n.ComponentID,
	}
	if n.Drift != nil {
		w.Drift = &wireDrift{
			Source:                n.Drift.Source,
			ExpectedTime:          n.Drift.ExpectedTime,
			ActualTime:            n.Drift.ActualTime,
			DriftUs:               n.Drift.Drift,
			Severity:              string(n.Drift.Severity),
			PredictedCorrectionUs: n.Drift.PredictedCorrection,
		}
	}
	if n.Health != nil {
		w.Health = &wireHealth{
			OverallHealth:       n.Health.OverallHealth,
			AudioSyncHealth:     n.Health.AudioSyncHealth,
			VisualSyncHealth:    n.Health.VisualSyncHealth,
			DriftLevel:          n.Health.DriftLevel,
			LatencyCompensation: n.Health.LatencyCompensation,
			PerformanceScore:    n.Health.PerformanceScore,
			RecoveryAttempts:    n.Health.RecoveryAttempts,
		}
	}
	if n.Recovery != nil {
		w.Recovery = &wireRecovery{
			Success:  n.Recovery.Success,
			Attempts: n.Recovery.Attempts,
		}
	}
	return w
}

// encode serializes a notification in the configured encoding.
func encode(encoding string, n syncengine.Notification) ([]byte, error) {
	w := toWire(n)
	switch encoding {
	case "msgpack":
		return msgpack.Marshal(w)
	case "json":
		return json.Marshal(w)
	default:
		return nil, fmt.Errorf("unknown encoding %q", encoding)
	}
}
