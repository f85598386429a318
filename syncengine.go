package syncengine

import "github.com/e7canasta/cadenza-sync/internal/engine"

// Engine is the audio/visual synchronization core.
//
// Lifecycle: New() → Initialize(clock) → register components, Calibrate,
// StartSynchronizedPlayback → Dispose(). Dispose is idempotent and never
// panics. See the package documentation for the full contract.
type Engine = engine.Engine

// New creates an engine with the given configuration. The engine is inert
// until Initialize provides a transport clock; position and sync-point
// queries before that return empty results rather than failing.
func New(cfg Config) *Engine {
	return engine.New(cfg)
}
