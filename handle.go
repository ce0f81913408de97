package anyhandle

import (
	"reflect"
	"sync/atomic"

	"github.com/wippyai/anyhandle/errors"
)

// Handle is a shared, reference-counted, lockable view of a value of type T.
//
// Every *Handle owns one share of the underlying cell. Clone adds a share,
// Release gives it back, and the value is torn down when the last share
// (including shares pinned by outstanding guards) is gone. All access goes
// through Read and Write guards.
//
// A Handle is safe for concurrent use, but releasing or converting a handle
// while another goroutine still uses that same *Handle is a caller bug.
type Handle[T any] struct {
	c atomic.Pointer[cell]
}

// New wraps v in a new shared cell with one owner.
// The cell is tagged with the static type T.
func New[T any](v T) *Handle[T] {
	return wrap[T](newTypedCell(v))
}

func wrap[T any](c *cell) *Handle[T] {
	h := &Handle[T]{}
	h.c.Store(c)
	return h
}

func (h *Handle[T]) load(phase errors.Phase) *cell {
	c := h.c.Load()
	if c == nil {
		panic(errors.New(phase, errors.KindReleased).
			WantType(reflect.TypeFor[T]().String()).
			Detail("handle used after release").
			Build())
	}
	return c
}

// Clone returns a new owner of the same cell. The value is not copied.
func (h *Handle[T]) Clone() *Handle[T] {
	c := h.load(errors.PhaseConstruct)
	c.acquire()
	return wrap[T](c)
}

// Read blocks until no writer holds the cell and returns a shared guard.
// Re-entrant acquisition on the same goroutine is not supported.
func (h *Handle[T]) Read() *ReadGuard[T] {
	c := h.load(errors.PhaseAccess)
	c.pin()
	c.mu.RLock()
	return &ReadGuard[T]{c: c, p: c.ptr.(*T)}
}

// Write blocks until no reader or writer holds the cell and returns an
// exclusive guard.
func (h *Handle[T]) Write() *WriteGuard[T] {
	c := h.load(errors.PhaseAccess)
	c.pin()
	c.mu.Lock()
	return &WriteGuard[T]{c: c, p: c.ptr.(*T)}
}

// View calls fn with the value under a read guard.
func (h *Handle[T]) View(fn func(v T)) {
	g := h.Read()
	defer g.Release()
	fn(*g.p)
}

// Update calls fn with a pointer to the value under a write guard.
// The pointer must not escape fn.
func (h *Handle[T]) Update(fn func(p *T)) {
	g := h.Write()
	defer g.Release()
	fn(g.p)
}

// Load returns a copy of the value.
func (h *Handle[T]) Load() T {
	g := h.Read()
	defer g.Release()
	return *g.p
}

// Store replaces the value.
func (h *Handle[T]) Store(v T) {
	g := h.Write()
	defer g.Release()
	*g.p = v
}

// Erase converts h into the erased view of the same cell.
// h is consumed: its share moves to the returned handle.
func (h *Handle[T]) Erase() *Erased {
	c := h.c.Swap(nil)
	if c == nil {
		panic(errors.Released(errors.PhaseConstruct, "handle"))
	}
	return wrapErased(c)
}

// Release gives up this handle's share. Calling it again is a no-op.
func (h *Handle[T]) Release() {
	if c := h.c.Swap(nil); c != nil {
		c.release()
	}
}

// Released reports whether h was released or consumed by a conversion.
func (h *Handle[T]) Released() bool {
	return h.c.Load() == nil
}

// RefCount returns the number of handles sharing the cell. Outstanding
// guards are not counted.
func (h *Handle[T]) RefCount() int {
	return h.load(errors.PhaseAccess).owners()
}

// Type returns the runtime type tag of the held value.
func (h *Handle[T]) Type() reflect.Type {
	return h.load(errors.PhaseAccess).typ
}

// Same reports whether h and other share a cell.
func (h *Handle[T]) Same(other *Handle[T]) bool {
	a, b := h.c.Load(), other.c.Load()
	return a != nil && a == b
}
