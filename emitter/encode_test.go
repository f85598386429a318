package emitter

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	syncengine "github.com/e7canasta/cadenza-sync"
)

func driftNotification() syncengine.Notification {
	return syncengine.Notification{
		Kind:      syncengine.KindDriftCorrected,
		TraceID:   "trace-1",
		EmittedAt: time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC),
		Drift: &syncengine.DriftMeasurement{
			Source:              "audio",
			ExpectedTime:        1.0,
			ActualTime:          1.00005,
			Drift:               50,
			Severity:            syncengine.SeverityMedium,
			PredictedCorrection: 55,
		},
		AppliedCorrection: -13.75,
	}
}

func TestEncodeJSONShape(t *testing.T) {
	payload, err := encode("json", driftNotification())
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("payload is not valid JSON: %v", err)
	}

	if decoded["kind"] != "drift_corrected" {
		t.Errorf("kind = %v", decoded["kind"])
	}
	if decoded["trace_id"] != "trace-1" {
		t.Errorf("trace_id = %v", decoded["trace_id"])
	}
	drift, ok := decoded["drift"].(map[string]any)
	if !ok {
		t.Fatalf("drift payload missing: %v", decoded)
	}
	if drift["source"] != "audio" {
		t.Errorf("drift.source = %v", drift["source"])
	}
	if drift["drift_us"] != 50.0 {
		t.Errorf("drift.drift_us = %v", drift["drift_us"])
	}
	if decoded["applied_correction_us"] != -13.75 {
		t.Errorf("applied_correction_us = %v", decoded["applied_correction_us"])
	}
	// Kind-irrelevant payloads are omitted, not emitted as nulls.
	if _, present := decoded["health"]; present {
		t.Error("health should be omitted for a drift notification")
	}
	if _, present := decoded["recovery"]; present {
		t.Error("recovery should be omitted for a drift notification")
	}
}

func TestEncodeMsgpackRoundTrip(t *testing.T) {
	payload, err := encode("msgpack", driftNotification())
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	var w wireNotification
	if err := msgpack.Unmarshal(payload, &w); err != nil {
		t.Fatalf("payload is not valid msgpack: %v", err)
	}
	if w.Kind != "drift_corrected" || w.Drift == nil || w.Drift.Severity != "medium" {
		t.Errorf("decoded = %+v", w)
	}
}

func TestEncodeHealthPayload(t *testing.T) {
	n := syncengine.Notification{
		Kind: syncengine.KindHealthUpdated,
		Health: &syncengine.SyncHealthMetrics{
			OverallHealth:    85,
			AudioSyncHealth:  100,
			RecoveryAttempts: 2,
		},
	}

	payload, err := encode("json", n)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("payload is not valid JSON: %v", err)
	}
	health, ok := decoded["health"].(map[string]any)
	if !ok {
		t.Fatalf("health payload missing: %v", decoded)
	}
	if health["overall_health"] != 85.0 {
		t.Errorf("overall_health = %v", health["overall_health"])
	}
	if health["recovery_attempts"] != 2.0 {
		t.Errorf("recovery_attempts = %v", health["recovery_attempts"])
	}
}

func TestEncodeUnknownEncoding(t *testing.T) {
	if _, err := encode("xml", driftNotification()); err == nil {
		t.Error("expected an error for an unknown encoding")
	}
}
