package engine

import (
	"sort"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// componentCounters holds per-component delivery counters.
type componentCounters struct {
	delivered atomic.Uint64
	skipped   atomic.Uint64
	failed    atomic.Uint64
}

// RegisterVisualComponent inserts a visual consumer into the registry,
// overwriting any previous descriptor with the same id. Existing delivery
// counters survive an overwrite.
func (e *Engine) RegisterVisualComponent(component VisualComponent) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.disposed {
		return ErrDisposed
	}

	c := component
	e.components[c.ID] = &c
	if _, ok := e.compStats[c.ID]; !ok {
		e.compStats[c.ID] = &componentCounters{}
	}

	e.log.Debug("visual component registered",
		"id", c.ID,
		"type", c.Type,
		"priority", c.Priority.String(),
		"latency_offset_us", c.LatencyOffset,
		"active", c.IsActive,
	)
	return nil
}

// UnregisterVisualComponent removes a consumer by id and emits
// component_unregistered. Removing an unknown id is a no-op and emits
// nothing (idempotent).
func (e *Engine) UnregisterVisualComponent(id string) {
	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return
	}
	_, exists := e.components[id]
	if exists {
		delete(e.components, id)
		delete(e.compStats, id)
	}
	e.mu.Unlock()

	if !exists {
		return
	}

	e.hub.publish(Notification{Kind: KindComponentUnregistered, ComponentID: id})
	e.log.Debug("visual component unregistered", "id", id)
}

// SetComponentActive flips the active flag of a registered component.
// Unknown ids are a no-op.
func (e *Engine) SetComponentActive(id string, active bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if c, ok := e.components[id]; ok {
		c.IsActive = active
	}
}

// StartSynchronizedPlayback begins the periodic broadcast loop. Idempotent:
// calling it while the loop runs does nothing. The loop stops on Dispose.
func (e *Engine) StartSynchronizedPlayback() error {
	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return ErrDisposed
	}
	if e.clock == nil {
		e.mu.Unlock()
		return ErrNotInitialized
	}
	if e.playing {
		e.mu.Unlock()
		return nil
	}
	e.playing = true
	e.mu.Unlock()

	e.sched.every(taskBroadcast, e.broadcastInterval, e.broadcastTick)

	e.log.Info("synchronized playback started", "interval", e.cfg.BroadcastInterval)
	return nil
}

// broadcastInterval is the live tick period: the configured interval,
// doubled while a recovery slowdown window is open.
func (e *Engine) broadcastInterval() time.Duration {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if time.Now().Before(e.slowUntil) {
		return 2 * e.cfg.BroadcastInterval
	}
	return e.cfg.BroadcastInterval
}

// broadcastTick pushes one compensated timing message to every active
// component. The tick works from a single transport snapshot: drift offset,
// position and base timestamp are all derived from the same poll.
//
// Dispatch order is sorted high to low priority as a scheduling preference;
// a panicking callback is recovered, logged and counted, and never aborts
// delivery to the remaining components.
func (e *Engine) broadcastTick() {
	snap, offsetUs, ok := e.snapshot()
	if !ok {
		return
	}
	position := e.positionFrom(snap, offsetUs)

	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return
	}
	e.ticks++
	deviceOffsetUs := e.compensationUs

	active := make([]*VisualComponent, 0, len(e.components))
	for _, c := range e.components {
		if !c.IsActive {
			if s, ok := e.compStats[c.ID]; ok {
				s.skipped.Add(1)
			}
			continue
		}
		copied := *c
		active = append(active, &copied)
	}
	e.mu.Unlock()

	sort.SliceStable(active, func(i, j int) bool {
		return active[i].Priority > active[j].Priority
	})

	baseTimestampUs := int64(position.MusicalTime*microsPerSecond) + deviceOffsetUs
	traceID := uuid.NewString()

	for _, c := range active {
		timing := MusicalTiming{
			Position:      *position,
			Tempo:         snap.TempoBPM,
			SyncTimestamp: baseTimestampUs + c.LatencyOffset,
			TraceID:       traceID,
		}
		e.dispatch(c, timing)
	}
}

// dispatch invokes one callback with panic isolation.
func (e *Engine) dispatch(c *VisualComponent, timing MusicalTiming) {
	defer func() {
		if r := recover(); r != nil {
			e.mu.RLock()
			s := e.compStats[c.ID]
			e.mu.RUnlock()
			if s != nil {
				s.failed.Add(1)
			}
			e.log.Error("visual component callback panicked",
				"id", c.ID,
				"type", c.Type,
				"panic", r,
			)
		}
	}()

	if c.Callback == nil {
		return
	}
	c.Callback(timing)

	e.mu.RLock()
	s := e.compStats[c.ID]
	e.mu.RUnlock()
	if s != nil {
		s.delivered.Add(1)
	}
}

// BroadcastStats returns a delivery-accounting snapshot for the registry.
func (e *Engine) BroadcastStats() BroadcastStats {
	e.mu.RLock()
	defer e.mu.RUnlock()

	stats := BroadcastStats{
		Ticks:      e.ticks,
		Components: make(map[string]ComponentStats, len(e.compStats)),
	}
	for id, c := range e.compStats {
		stats.Components[id] = ComponentStats{
			Delivered: c.delivered.Load(),
			Skipped:   c.skipped.Load(),
			Failed:    c.failed.Load(),
		}
	}
	return stats
}
