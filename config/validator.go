package config

import (
	"fmt"
	"regexp"
)

var instanceIDPattern = regexp.MustCompile(`^[a-z0-9\-]+$`)

// Validate checks the configuration and fills defaults for optional fields.
func Validate(cfg *Config) error {
	if cfg.InstanceID == "" {
		return fmt.Errorf("instance_id is required")
	}
	if !instanceIDPattern.MatchString(cfg.InstanceID) {
		return fmt.Errorf("instance_id must match pattern [a-z0-9-]+")
	}

	// Engine bounds. Zero means "engine default"; negatives other than the
	// scan sentinel are rejected.
	if cfg.Engine.SubdivisionResolution < 0 {
		return fmt.Errorf("engine.subdivision_resolution must be >= 0")
	}
	if cfg.Engine.MaxDriftToleranceUs < 0 {
		return fmt.Errorf("engine.max_drift_tolerance_us must be >= 0")
	}
	if cfg.Engine.BroadcastIntervalMs < 0 {
		return fmt.Errorf("engine.broadcast_interval_ms must be >= 0")
	}
	if cfg.Engine.ScanIntervalMs < -1 {
		return fmt.Errorf("engine.scan_interval_ms must be >= -1 (-1 disables)")
	}

	// Transport defaults.
	switch cfg.Transport.Mode {
	case "":
		cfg.Transport.Mode = "manual"
	case "osc", "manual":
	default:
		return fmt.Errorf("transport.mode must be \"osc\" or \"manual\"")
	}
	if cfg.Transport.Mode == "osc" && cfg.Transport.MasterHost == "" {
		cfg.Transport.MasterHost = "127.0.0.1"
	}
	if cfg.Transport.Mode == "manual" && cfg.Transport.TempoBPM <= 0 {
		cfg.Transport.TempoBPM = 120
	}

	// MQTT defaults.
	if cfg.MQTT.Enabled {
		if cfg.MQTT.Broker == "" {
			return fmt.Errorf("mqtt.broker is required when mqtt.enabled")
		}
		if cfg.MQTT.TopicPrefix == "" {
			cfg.MQTT.TopicPrefix = fmt.Sprintf("cadenza/sync/%s", cfg.InstanceID)
		}
		switch cfg.MQTT.Encoding {
		case "":
			cfg.MQTT.Encoding = "json"
		case "json", "msgpack":
		default:
			return fmt.Errorf("mqtt.encoding must be \"json\" or \"msgpack\"")
		}
		if cfg.MQTT.QoS > 2 {
			return fmt.Errorf("mqtt.qos must be 0, 1 or 2")
		}
	}

	return nil
}
