package anyhandle

import (
	"reflect"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/wippyai/anyhandle/errors"
)

// Erased is a handle whose static type has been discarded.
//
// It shares storage, ownership and locking with the typed handles it was
// converted from or to. The concrete type of the held value is kept as a
// runtime tag and checked by Downcast.
type Erased struct {
	c atomic.Pointer[cell]
}

// NewErased wraps v in a new shared cell tagged with the dynamic type of v.
// A nil v yields a cell tagged as any.
func NewErased(v any) *Erased {
	return wrapErased(newErasedCell(v))
}

func wrapErased(c *cell) *Erased {
	e := &Erased{}
	e.c.Store(c)
	return e
}

func (e *Erased) load(phase errors.Phase) *cell {
	c := e.c.Load()
	if c == nil {
		panic(errors.Released(phase, "erased handle"))
	}
	return c
}

// Clone returns a new owner of the same cell.
func (e *Erased) Clone() *Erased {
	c := e.load(errors.PhaseConstruct)
	c.acquire()
	return wrapErased(c)
}

// Read blocks until no writer holds the cell and returns a shared guard.
func (e *Erased) Read() *ErasedReadGuard {
	c := e.load(errors.PhaseAccess)
	c.pin()
	c.mu.RLock()
	return &ErasedReadGuard{c: c}
}

// Write blocks until no reader or writer holds the cell and returns an
// exclusive guard.
func (e *Erased) Write() *ErasedWriteGuard {
	c := e.load(errors.PhaseAccess)
	c.pin()
	c.mu.Lock()
	return &ErasedWriteGuard{c: c}
}

// View calls fn with the value under a read guard.
func (e *Erased) View(fn func(v any)) {
	g := e.Read()
	defer g.Release()
	fn(g.c.elem())
}

// Load returns the held value.
func (e *Erased) Load() any {
	g := e.Read()
	defer g.Release()
	return g.c.elem()
}

// Store replaces the held value. v must have the held concrete type.
func (e *Erased) Store(v any) error {
	g := e.Write()
	defer g.Release()
	return g.c.set(v)
}

// Release gives up this handle's share. Calling it again is a no-op.
func (e *Erased) Release() {
	if c := e.c.Swap(nil); c != nil {
		c.release()
	}
}

// Released reports whether e was released or consumed by a conversion.
func (e *Erased) Released() bool {
	return e.c.Load() == nil
}

// RefCount returns the number of handles sharing the cell. Outstanding
// guards are not counted.
func (e *Erased) RefCount() int {
	return e.load(errors.PhaseAccess).owners()
}

// Type returns the runtime type tag of the held value.
func (e *Erased) Type() reflect.Type {
	return e.load(errors.PhaseAccess).typ
}

// Same reports whether e and other share a cell.
func (e *Erased) Same(other *Erased) bool {
	a, b := e.c.Load(), other.c.Load()
	return a != nil && a == b
}

// Is reports whether e holds a value of exactly type T.
func Is[T any](e *Erased) bool {
	return e.load(errors.PhaseDowncast).typ == reflect.TypeFor[T]()
}

// Downcast converts e to a handle typed T.
//
// The check compares the cell's runtime tag with T and never takes the
// lock. On success e is consumed and the returned handle takes over its
// share. On mismatch e is left untouched and the returned *errors.Error
// carries it in Value.
func Downcast[T any](e *Erased) (*Handle[T], error) {
	c := e.load(errors.PhaseDowncast)
	want := reflect.TypeFor[T]()
	if c.typ != want {
		Logger().Debug("downcast rejected",
			zap.Uint64("cell", c.id),
			zap.Stringer("have", c.typ),
			zap.Stringer("want", want))
		return nil, errors.New(errors.PhaseDowncast, errors.KindTypeMismatch).
			HaveType(c.typ.String()).
			WantType(want.String()).
			Value(e).
			Build()
	}
	if !e.c.CompareAndSwap(c, nil) {
		panic(errors.Released(errors.PhaseDowncast, "erased handle"))
	}
	return wrap[T](c), nil
}

// As is Downcast reporting only success.
func As[T any](e *Erased) (*Handle[T], bool) {
	h, err := Downcast[T](e)
	return h, err == nil
}
