// Package counters holds the three request counter strategies served by the
// demo: a mutex-guarded process counter, a per-worker counter owned by a
// single worker, and a lock-free global counter shared by all workers.
package counters

import "sync/atomic"

// Exclusive is a process-wide counter guarded by a mutex. Create it once
// before workers start and share the pointer.
type Exclusive struct {
	g *Guarded[int64]
}

// NewExclusive returns a counter starting at zero.
func NewExclusive() *Exclusive {
	return &Exclusive{g: NewGuarded[int64](0)}
}

// Increment adds one under the lock and returns the new value.
func (e *Exclusive) Increment() (int64, error) {
	var n int64
	err := e.g.With(func(v *int64) {
		*v++
		n = *v
	})
	return n, err
}

// Value reads the counter under the lock.
func (e *Exclusive) Value() (int64, error) {
	var n int64
	err := e.g.With(func(v *int64) { n = *v })
	return n, err
}

// Update runs fn under the counter lock. A panic in fn poisons the counter.
func (e *Exclusive) Update(fn func(v *int64)) error {
	return e.g.With(fn)
}

// Poisoned reports whether a holder panicked while holding the lock.
func (e *Exclusive) Poisoned() bool { return e.g.Poisoned() }

// Recover clears a poisoned lock, optionally resetting the value to zero.
// It returns the poison that was cleared, or nil if the lock was healthy.
func (e *Exclusive) Recover(reset bool) *PoisonError {
	if reset {
		var zero int64
		return e.g.ClearPoison(&zero)
	}
	return e.g.ClearPoison(nil)
}

// Local is owned by exactly one worker. It has no synchronization; callers
// must never share it between workers.
type Local struct {
	n uint64
}

// Get returns the current value.
func (l *Local) Get() uint64 { return l.n }

// Increment adds one and returns the new value.
func (l *Local) Increment() uint64 {
	l.n++
	return l.n
}

// Global is shared by every worker and updated with atomic adds only.
type Global struct {
	n atomic.Uint64
}

// NewGlobal returns a counter starting at zero.
func NewGlobal() *Global { return &Global{} }

// Increment adds one and returns the new total.
func (g *Global) Increment() uint64 { return g.n.Add(1) }

// Load returns the current total.
func (g *Global) Load() uint64 { return g.n.Load() }

// Combined pairs a worker-owned Local with the shared Global. Build one per
// worker from the same *Global.
type Combined struct {
	local  Local
	global *Global
}

// NewCombined returns worker state that reports into g.
func NewCombined(g *Global) *Combined {
	return &Combined{global: g}
}

// Increment bumps the global total and then the local count, returning both
// post-increment values.
func (c *Combined) Increment() (global, local uint64) {
	global = c.global.Increment()
	local = c.local.Increment()
	return global, local
}

// Counts reads both values without changing them.
func (c *Combined) Counts() (global, local uint64) {
	return c.global.Load(), c.local.Get()
}
