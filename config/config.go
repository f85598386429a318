// Package config loads and validates the cadenzad daemon configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	syncengine "github.com/e7canasta/cadenza-sync"
)

// Config represents the complete cadenzad configuration.
type Config struct {
	InstanceID string          `yaml:"instance_id"`
	Engine     EngineConfig    `yaml:"engine"`
	Transport  TransportConfig `yaml:"transport"`
	MQTT       MQTTConfig      `yaml:"mqtt"`
}

// EngineConfig contains the sync-engine tunables.
type EngineConfig struct {
	SubdivisionResolution int     `yaml:"subdivision_resolution"` // subdivisions per beat
	MaxDriftToleranceUs   float64 `yaml:"max_drift_tolerance_us"`
	CorrectionThresholdUs float64 `yaml:"correction_threshold_us"`
	DriftHistorySize      int     `yaml:"drift_history_size"`
	BroadcastIntervalMs   int     `yaml:"broadcast_interval_ms"`
	HealthIntervalMs      int     `yaml:"health_interval_ms"`
	ScanIntervalMs        int     `yaml:"scan_interval_ms"` // -1 disables the self-scan
	MaxRecoveryAttempts   int     `yaml:"max_recovery_attempts"`
	RecoveryCooldownMs    int     `yaml:"recovery_cooldown_ms"`
}

// TransportConfig contains the OSC transport-clock settings.
type TransportConfig struct {
	// Mode selects the clock source: "osc" (oscsync slave) or "manual"
	Mode string `yaml:"mode"`
	// MasterHost is the oscsync master host for OSC mode
	MasterHost string `yaml:"master_host"`
	// TempoBPM is the fixed tempo for manual mode
	TempoBPM float64 `yaml:"tempo_bpm"`
}

// MQTTConfig contains the notification-emitter settings.
type MQTTConfig struct {
	// Enabled turns the MQTT notification bridge on
	Enabled bool `yaml:"enabled"`
	// Broker is the host:port of the MQTT broker
	Broker string `yaml:"broker"`
	// TopicPrefix prefixes per-kind topics (default "cadenza/sync")
	TopicPrefix string `yaml:"topic_prefix"`
	// Encoding is "json" or "msgpack" (default "json")
	Encoding string `yaml:"encoding"`
	// QoS for all published notifications (0-2)
	QoS byte `yaml:"qos"`
}

// Load reads, parses and validates a YAML configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// EngineConfig maps the YAML tunables onto the engine's Config. Zero fields
// stay zero so the engine's own defaults apply.
func (c *Config) EngineConfig() syncengine.Config {
	ec := syncengine.Config{
		SubdivisionResolution: c.Engine.SubdivisionResolution,
		MaxDriftToleranceUs:   c.Engine.MaxDriftToleranceUs,
		CorrectionThresholdUs: c.Engine.CorrectionThresholdUs,
		DriftHistorySize:      c.Engine.DriftHistorySize,
		BroadcastInterval:     time.Duration(c.Engine.BroadcastIntervalMs) * time.Millisecond,
		HealthInterval:        time.Duration(c.Engine.HealthIntervalMs) * time.Millisecond,
		MaxRecoveryAttempts:   c.Engine.MaxRecoveryAttempts,
		RecoveryCooldown:      time.Duration(c.Engine.RecoveryCooldownMs) * time.Millisecond,
	}
	if c.Engine.ScanIntervalMs < 0 {
		ec.ScanInterval = -1
	} else {
		ec.ScanInterval = time.Duration(c.Engine.ScanIntervalMs) * time.Millisecond
	}
	return ec
}
