// Package emitter bridges the engine's in-process notification stream onto
// MQTT topics, one topic per notification kind under a configurable prefix.
package emitter

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	syncengine "github.com/e7canasta/cadenza-sync"
)

// channel depth per notification kind; the hub drops on overflow, so the
// bridge never exerts backpressure on engine ticks.
const subscriberBuffer = 64

// Options configures the MQTT notification bridge.
type Options struct {
	// Broker is the host:port of the MQTT broker
	Broker string
	// ClientID identifies this engine instance to the broker
	ClientID string
	// TopicPrefix prefixes per-kind topics (e.g. "cadenza/sync/studio-1")
	TopicPrefix string
	// Encoding is "json" or "msgpack"
	Encoding string
	// QoS for all published notifications
	QoS byte
}

// Stats is a snapshot of emitter accounting.
type Stats struct {
	// Published maps topic to successfully published message count
	Published map[string]uint64
	// Errors counts failed publishes and encodes
	Errors uint64
	// Connected reports the current broker connection state
	Connected bool
}

// Emitter publishes engine notifications to an MQTT broker.
type Emitter struct {
	opts   Options
	Client mqtt.Client // Exported for host-level health checks

	mu        sync.RWMutex
	published map[string]uint64
	errors    uint64
	connected bool
}

// New creates an emitter; call Connect before Run.
func New(opts Options) *Emitter {
	if opts.Encoding == "" {
		opts.Encoding = "json"
	}
	return &Emitter{
		opts:      opts,
		published: make(map[string]uint64),
	}
}

// Connect establishes the broker connection with auto-reconnect.
func (e *Emitter) Connect(ctx context.Context) error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s", e.opts.Broker))
	opts.SetClientID(e.opts.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)

	opts.OnConnect = func(c mqtt.Client) {
		e.mu.Lock()
		e.connected = true
		e.mu.Unlock()
		slog.Info("mqtt connection established",
			"broker", e.opts.Broker,
			"client_id", e.opts.ClientID,
		)
	}
	opts.OnConnectionLost = func(c mqtt.Client, err error) {
		e.mu.Lock()
		e.connected = false
		e.mu.Unlock()
		slog.Warn("mqtt connection lost, will auto-reconnect",
			"error", err,
			"broker", e.opts.Broker,
		)
	}

	e.Client = mqtt.NewClient(opts)

	slog.Info("connecting to mqtt broker", "broker", e.opts.Broker)

	token := e.Client.Connect()
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("mqtt connection timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connection failed: %w", err)
	}

	e.mu.Lock()
	e.connected = true
	e.mu.Unlock()
	return nil
}

// Run subscribes to every notification kind on the hub and publishes each
// event to <prefix>/<kind> until ctx is cancelled. Blocks.
func (e *Emitter) Run(ctx context.Context, hub *syncengine.Hub) error {
	subscriberID := fmt.Sprintf("mqtt-emitter-%s", e.opts.ClientID)
	ch := make(chan syncengine.Notification, subscriberBuffer)

	for _, kind := range syncengine.Kinds() {
		if err := hub.Subscribe(kind, subscriberID, ch); err != nil {
			return fmt.Errorf("subscribing to %s: %w", kind, err)
		}
	}
	defer func() {
		for _, kind := range syncengine.Kinds() {
			// Hub may already be closed during engine teardown.
			_ = hub.Unsubscribe(kind, subscriberID)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case n := <-ch:
			e.emit(n)
		}
	}
}

// emit encodes and publishes one notification. Failures are counted and
// logged, never propagated: a broker outage must not affect the engine.
func (e *Emitter) emit(n syncengine.Notification) {
	topic := fmt.Sprintf("%s/%s", e.opts.TopicPrefix, n.Kind)

	payload, err := encode(e.opts.Encoding, n)
	if err != nil {
		e.countError()
		slog.Error("failed to encode notification", "kind", string(n.Kind), "error", err)
		return
	}

	token := e.Client.Publish(topic, e.opts.QoS, false, payload)
	if !token.WaitTimeout(2 * time.Second) {
		e.countError()
		slog.Warn("mqtt publish timeout", "topic", topic)
		return
	}
	if err := token.Error(); err != nil {
		e.countError()
		slog.Error("mqtt publish failed", "topic", topic, "error", err)
		return
	}

	e.mu.Lock()
	e.published[topic]++
	e.mu.Unlock()
}

func (e *Emitter) countError() {
	e.mu.Lock()
	e.errors++
	e.mu.Unlock()
}

// Stats returns an accounting snapshot.
func (e *Emitter) Stats() Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()

	published := make(map[string]uint64, len(e.published))
	for topic, count := range e.published {
		published[topic] = count
	}
	return Stats{
		Published: published,
		Errors:    e.errors,
		Connected: e.connected,
	}
}

// Close disconnects from the broker, allowing in-flight publishes to finish.
func (e *Emitter) Close() {
	if e.Client != nil && e.Client.IsConnected() {
		e.Client.Disconnect(250)
	}
	e.mu.Lock()
	e.connected = false
	e.mu.Unlock()
}
