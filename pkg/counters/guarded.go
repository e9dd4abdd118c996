package counters

import (
	"errors"
	"fmt"
	"sync"
)

// ErrPoisoned is matched by every *PoisonError.
var ErrPoisoned = errors.New("lock poisoned")

// PoisonError reports that a previous holder of a Guarded value panicked
// while inside the critical section. Cause is the recovered panic value.
type PoisonError struct {
	Cause any
}

func (e *PoisonError) Error() string {
	return fmt.Sprintf("lock poisoned: previous holder panicked: %v", e.Cause)
}

func (e *PoisonError) Is(target error) bool { return target == ErrPoisoned }

// Guarded holds a value that may only be touched under its mutex.
//
// A panic inside With marks the guard poisoned. The mutex is still released
// and the panic keeps unwinding through the caller; every later With call
// returns a *PoisonError until ClearPoison is called.
type Guarded[T any] struct {
	mu     sync.Mutex
	val    T
	poison *PoisonError
}

// NewGuarded wraps v.
func NewGuarded[T any](v T) *Guarded[T] {
	return &Guarded[T]{val: v}
}

// With runs fn with exclusive access to the value.
func (g *Guarded[T]) With(fn func(v *T)) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.poison != nil {
		return g.poison
	}

	completed := false
	defer func() {
		if completed {
			return
		}
		r := recover()
		if r == nil {
			// runtime.Goexit inside fn
			g.poison = &PoisonError{Cause: "goroutine exited"}
			return
		}
		g.poison = &PoisonError{Cause: r}
		panic(r)
	}()
	fn(&g.val)
	completed = true
	return nil
}

// Poisoned reports whether a holder has panicked since the last ClearPoison.
func (g *Guarded[T]) Poisoned() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.poison != nil
}

// ClearPoison makes the guard usable again. When the guard was poisoned and
// reset is non-nil the value is replaced with *reset; otherwise the value
// left behind by the panicking holder is kept. It returns the previous
// poison, or nil for a healthy guard, which is left untouched.
func (g *Guarded[T]) ClearPoison(reset *T) *PoisonError {
	g.mu.Lock()
	defer g.mu.Unlock()
	prev := g.poison
	g.poison = nil
	if prev != nil && reset != nil {
		g.val = *reset
	}
	return prev
}
