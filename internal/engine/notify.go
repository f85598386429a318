package engine

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// NotificationKind is the closed enum of events the engine publishes.
type NotificationKind string

const (
	// KindDriftMeasured fires on every CorrectDrift call, regardless of magnitude
	KindDriftMeasured NotificationKind = "drift_measured"
	// KindDriftCorrected fires only when |drift| reached the correction threshold
	KindDriftCorrected NotificationKind = "drift_corrected"
	// KindComponentUnregistered fires when a registered component is removed
	KindComponentUnregistered NotificationKind = "component_unregistered"
	// KindHealthUpdated fires on the periodic health timer
	KindHealthUpdated NotificationKind = "health_updated"
	// KindRecoveryComplete fires when a recovery attempt ran to completion
	KindRecoveryComplete NotificationKind = "recovery_complete"
	// KindRecoveryFailed fires when the attempt budget is exhausted
	KindRecoveryFailed NotificationKind = "recovery_failed"
)

// Kinds lists every notification kind, in a stable order.
func Kinds() []NotificationKind {
	return []NotificationKind{
		KindDriftMeasured,
		KindDriftCorrected,
		KindComponentUnregistered,
		KindHealthUpdated,
		KindRecoveryComplete,
		KindRecoveryFailed,
	}
}

// Notification is one event on the engine's notification stream.
//
// Exactly one payload field is populated, determined by Kind.
type Notification struct {
	// Kind identifies the event and the populated payload field
	Kind NotificationKind
	// TraceID correlates the event with logs and outbound timing messages
	TraceID string
	// EmittedAt is when the event was published
	EmittedAt time.Time

	// Drift is set for drift_measured and drift_corrected
	Drift *DriftMeasurement
	// AppliedCorrection (µs) is set for drift_corrected
	AppliedCorrection float64
	// ComponentID is set for component_unregistered
	ComponentID string
	// Health is set for health_updated
	Health *SyncHealthMetrics
	// Recovery is set for recovery_complete and recovery_failed
	Recovery *RecoveryResult
}

var (
	// ErrHubClosed is returned when operations are attempted on a closed hub.
	ErrHubClosed = errors.New("notification hub is closed")

	// ErrSubscriberExists is returned when Subscribe reuses an id for a kind.
	ErrSubscriberExists = errors.New("subscriber id already exists for kind")

	// ErrSubscriberNotFound is returned when Unsubscribe names an unknown id.
	ErrSubscriberNotFound = errors.New("subscriber id not found for kind")

	// ErrNilChannel is returned when Subscribe is given a nil channel.
	ErrNilChannel = errors.New("subscriber channel cannot be nil")
)

// subscriberCounters holds per-subscriber delivery counters.
type subscriberCounters struct {
	sent    atomic.Uint64
	dropped atomic.Uint64
}

// HubStats is a snapshot of notification delivery accounting.
type HubStats struct {
	// TotalPublished is the number of publish calls across all kinds
	TotalPublished uint64
	// Sent is the total notifications delivered to subscriber channels
	Sent uint64
	// Dropped is the total notifications dropped on full subscriber channels
	Dropped uint64
}

// Hub fans notifications out to per-kind subscriber channels.
//
// Publish never blocks: a subscriber whose channel is full has the
// notification dropped and counted, never queued. Subscribers that care
// about completeness size their channels accordingly.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[NotificationKind]map[string]chan<- Notification
	counters    map[NotificationKind]map[string]*subscriberCounters
	closed      bool

	totalPublished atomic.Uint64
}

// NewHub creates an empty notification hub.
func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[NotificationKind]map[string]chan<- Notification),
		counters:    make(map[NotificationKind]map[string]*subscriberCounters),
	}
}

// Subscribe registers a channel to receive notifications of one kind.
// The same id may be reused across different kinds.
func (h *Hub) Subscribe(kind NotificationKind, id string, ch chan<- Notification) error {
	if ch == nil {
		return ErrNilChannel
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrHubClosed
	}
	if _, exists := h.subscribers[kind][id]; exists {
		return ErrSubscriberExists
	}

	if h.subscribers[kind] == nil {
		h.subscribers[kind] = make(map[string]chan<- Notification)
		h.counters[kind] = make(map[string]*subscriberCounters)
	}
	h.subscribers[kind][id] = ch
	h.counters[kind][id] = &subscriberCounters{}

	return nil
}

// Unsubscribe removes a subscriber from one kind.
func (h *Hub) Unsubscribe(kind NotificationKind, id string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrHubClosed
	}
	if _, exists := h.subscribers[kind][id]; !exists {
		return ErrSubscriberNotFound
	}

	delete(h.subscribers[kind], id)
	delete(h.counters[kind], id)

	return nil
}

// publish delivers a notification to every subscriber of its kind (non-blocking).
// Stamps TraceID and EmittedAt if the caller left them zero.
// Publishing on a closed hub is a silent no-op: teardown races with in-flight
// ticks and must never panic.
func (h *Hub) publish(n Notification) {
	if n.TraceID == "" {
		n.TraceID = uuid.NewString()
	}
	if n.EmittedAt.IsZero() {
		n.EmittedAt = time.Now()
	}

	h.totalPublished.Add(1)

	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed {
		return
	}

	for id, ch := range h.subscribers[n.Kind] {
		select {
		case ch <- n:
			h.counters[n.Kind][id].sent.Add(1)
		default:
			// Subscriber full: drop, never queue.
			h.counters[n.Kind][id].dropped.Add(1)
		}
	}
}

// Stats returns a delivery-accounting snapshot.
func (h *Hub) Stats() HubStats {
	h.mu.RLock()
	defer h.mu.RUnlock()

	stats := HubStats{TotalPublished: h.totalPublished.Load()}
	for _, byID := range h.counters {
		for _, c := range byID {
			stats.Sent += c.sent.Load()
			stats.Dropped += c.dropped.Load()
		}
	}
	return stats
}

// Close stops the hub. Subsequent Subscribe/Unsubscribe return ErrHubClosed,
// publish becomes a no-op, Stats keeps returning the final snapshot.
// Subscriber channels are not closed here; their owners manage their lifecycle.
// Idempotent.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.closed = true
	return nil
}
