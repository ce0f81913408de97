package anyhandle

import (
	"sync/atomic"

	"github.com/wippyai/anyhandle/errors"
)

// Guards pin their cell for as long as they hold the lock, so a cell is
// never torn down under an outstanding guard. A pin is not an owner and
// does not show in RefCount.
// Release is idempotent. Any other method panics after Release.

// ReadGuard grants shared access to the value of a Handle.
type ReadGuard[T any] struct {
	c    *cell
	p    *T
	done atomic.Bool
}

// Value returns a copy of the held value.
func (g *ReadGuard[T]) Value() T {
	if g.done.Load() {
		panic(errors.Released(errors.PhaseAccess, "read guard"))
	}
	return *g.p
}

// Release unlocks the cell for writers once no other readers remain.
func (g *ReadGuard[T]) Release() {
	if g.done.CompareAndSwap(false, true) {
		g.c.mu.RUnlock()
		g.c.unpin()
	}
}

// WriteGuard grants exclusive access to the value of a Handle.
type WriteGuard[T any] struct {
	c    *cell
	p    *T
	done atomic.Bool
}

// Value returns a copy of the held value.
func (g *WriteGuard[T]) Value() T {
	return *g.Ptr()
}

// Ptr returns a pointer to the held value, valid until Release.
func (g *WriteGuard[T]) Ptr() *T {
	if g.done.Load() {
		panic(errors.Released(errors.PhaseWrite, "write guard"))
	}
	return g.p
}

// Set replaces the held value.
func (g *WriteGuard[T]) Set(v T) {
	*g.Ptr() = v
}

// Release unlocks the cell.
func (g *WriteGuard[T]) Release() {
	if g.done.CompareAndSwap(false, true) {
		g.c.mu.Unlock()
		g.c.unpin()
	}
}

// ErasedReadGuard grants shared access to the value of an Erased handle.
type ErasedReadGuard struct {
	c    *cell
	done atomic.Bool
}

// Value returns the held value.
func (g *ErasedReadGuard) Value() any {
	if g.done.Load() {
		panic(errors.Released(errors.PhaseAccess, "read guard"))
	}
	return g.c.elem()
}

// Release unlocks the cell for writers once no other readers remain.
func (g *ErasedReadGuard) Release() {
	if g.done.CompareAndSwap(false, true) {
		g.c.mu.RUnlock()
		g.c.unpin()
	}
}

// ErasedWriteGuard grants exclusive access to the value of an Erased handle.
type ErasedWriteGuard struct {
	c    *cell
	done atomic.Bool
}

// Value returns the held value.
func (g *ErasedWriteGuard) Value() any {
	if g.done.Load() {
		panic(errors.Released(errors.PhaseWrite, "write guard"))
	}
	return g.c.elem()
}

// Set replaces the held value. A value of a different concrete type is
// rejected with a type mismatch and the held value is left as it was.
func (g *ErasedWriteGuard) Set(v any) error {
	if g.done.Load() {
		panic(errors.Released(errors.PhaseWrite, "write guard"))
	}
	return g.c.set(v)
}

// Release unlocks the cell.
func (g *ErasedWriteGuard) Release() {
	if g.done.CompareAndSwap(false, true) {
		g.c.mu.Unlock()
		g.c.unpin()
	}
}
