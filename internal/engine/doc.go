// Package engine implements the simulation context and the event loop.
//
// The Engine owns the particle array, the registered predictors
// (interactions, locals, globals and systems), the spatial index and the
// future event list. Everything else talks to it through registration,
// observers, snapshots and Step/Run.
//
// ARCHITECTURE:
//
// Single-Threaded Event Loop:
// Events are executed one at a time in non-decreasing time order. Step
// pops the earliest valid event, advances the shared clock, resolves the
// event through the predictor that produced it, re-predicts every touched
// particle and notifies observers. Nothing inside Step blocks or spawns
// goroutines; independent engines may run concurrently.
//
// Lifecycle:
//
//	Uninitialised -> Initialised -> Running -> Halted | Completed | Faulted
//
// Initialise checks the configuration (ConfigurationError), builds the
// index and fills the event list. Halt may be called from any goroutine;
// the loop stops before the next event. Budgets are checked between events.
// A fatal model error moves the engine to Faulted.
//
// CRITICAL PATTERNS:
//
// Lazy Invalidation:
// Touching a particle bumps its counter in the event list. Pair events
// naming it as partner are dropped only when they surface, never searched
// for.
//
// Recalculation:
// Interaction and local events are predicted again when popped; a later
// fresh prediction is rejected in favour of the next queued event, subject
// to the rejection Watchdog.
//
// Determinism:
// Predictors are consulted in registration order, ties in the event list
// fall back to insertion order and every random source is seeded. The same
// configuration therefore always produces the same event sequence.
package engine
