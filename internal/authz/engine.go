package authz

import "sync/atomic"

// Engine bundles the resolver, evaluator and gate over the current hierarchy
// snapshot. A reference-data refresh swaps the whole bundle atomically, so
// an in-flight evaluation always sees one consistent snapshot; nothing is
// patched in place.
type Engine struct {
	state atomic.Pointer[engineState]
}

type engineState struct {
	resolver *Resolver
	eval     *Evaluator
	gate     *Gate
	cached   *CachedGate
}

// NewEngine constructs an Engine over the initial hierarchy snapshot.
func NewEngine(h Hierarchy) *Engine {
	e := &Engine{}
	e.Swap(h)
	return e
}

// Swap replaces the hierarchy snapshot. The memo cache is rebuilt from
// scratch because geography-dependent decisions may change with the
// snapshot.
func (e *Engine) Swap(h Hierarchy) {
	resolver := NewResolver(h)
	eval := NewEvaluator(resolver)
	gate := NewGate(eval)
	e.state.Store(&engineState{
		resolver: resolver,
		eval:     eval,
		gate:     gate,
		cached:   NewCachedGate(gate),
	})
}

// Resolver returns the geographic half of the engine.
func (e *Engine) Resolver() *Resolver { return e.state.Load().resolver }

// Evaluator returns the permission half of the engine.
func (e *Engine) Evaluator() *Evaluator { return e.state.Load().eval }

// Gate returns the constraint facade.
func (e *Engine) Gate() *Gate { return e.state.Load().gate }

// CachedGate returns the memoizing constraint facade.
func (e *Engine) CachedGate() *CachedGate { return e.state.Load().cached }

// InvalidateMemo drops every memoized decision. Called on any profile
// replacement; per-user eviction is deliberately not offered.
func (e *Engine) InvalidateMemo() {
	e.state.Load().cached.Invalidate()
}
