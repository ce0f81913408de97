package anyhandle

import (
	"reflect"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/wippyai/anyhandle/errors"
)

// Dropper is optionally implemented by held values that need cleanup.
// Drop runs exactly once, after the last owner of the cell releases it.
type Dropper interface {
	Drop()
}

var (
	// ErrTypeMismatch matches any type mismatch raised by this package.
	ErrTypeMismatch = &errors.Error{Kind: errors.KindTypeMismatch}

	// ErrReleased matches use of a released or consumed handle.
	ErrReleased = &errors.Error{Kind: errors.KindReleased}
)

var anyType = reflect.TypeFor[any]()

var cellSeq atomic.Uint64

// refs packs owners in the high 32 bits and live guards in the low 32.
const (
	ownerUnit int64 = 1 << 32
	guardUnit int64 = 1
)

// cell is the shared storage behind every view of one value.
// Ownership (refs) and access (mu) are independent layers.
type cell struct {
	ptr  any // *D where D is typ
	typ  reflect.Type
	id   uint64
	refs atomic.Int64
	mu   sync.RWMutex
}

func newCell(ptr any, typ reflect.Type) *cell {
	c := &cell{
		ptr: ptr,
		typ: typ,
		id:  cellSeq.Add(1),
	}
	c.refs.Store(ownerUnit)
	return c
}

// newTypedCell stores v under its static type.
func newTypedCell[T any](v T) *cell {
	return newCell(&v, reflect.TypeFor[T]())
}

// newErasedCell stores v under its dynamic type.
// A nil interface is stored as an any-typed slot.
func newErasedCell(v any) *cell {
	t := reflect.TypeOf(v)
	if t == nil {
		var slot any
		return newCell(&slot, anyType)
	}
	p := reflect.New(t)
	p.Elem().Set(reflect.ValueOf(v))
	return newCell(p.Interface(), t)
}

func (c *cell) acquire() {
	c.refs.Add(ownerUnit)
}

func (c *cell) release() {
	c.drop(ownerUnit)
}

// pin keeps the cell alive under a guard without adding an owner.
func (c *cell) pin() {
	c.refs.Add(guardUnit)
}

func (c *cell) unpin() {
	c.drop(guardUnit)
}

// owners returns the number of handles sharing the cell.
func (c *cell) owners() int {
	return int(c.refs.Load() / ownerUnit)
}

func (c *cell) drop(unit int64) {
	n := c.refs.Add(-unit)
	switch {
	case n == 0:
		c.destroy()
	case n < 0:
		panic(errors.New(errors.PhaseRelease, errors.KindReleased).
			HaveType(c.typ.String()).
			Detail("owner count dropped below zero").
			Build())
	}
}

// destroy runs with no owners and no guards left, so it needs no lock.
func (c *cell) destroy() {
	ptr := c.ptr
	c.ptr = nil

	if d, ok := ptr.(Dropper); ok {
		d.Drop()
	} else if d, ok := reflect.ValueOf(ptr).Elem().Interface().(Dropper); ok {
		d.Drop()
	}

	Logger().Debug("cell destroyed",
		zap.Uint64("cell", c.id),
		zap.Stringer("type", c.typ))
}

// elem returns the held value as an interface.
func (c *cell) elem() any {
	return reflect.ValueOf(c.ptr).Elem().Interface()
}

// set replaces the held value, keeping the concrete type fixed. A cell
// tagged with an interface type accepts any value implementing it.
func (c *cell) set(v any) error {
	vt := reflect.TypeOf(v)
	slot := reflect.ValueOf(c.ptr).Elem()
	if c.typ.Kind() == reflect.Interface {
		switch {
		case vt == nil:
			slot.Set(reflect.Zero(c.typ))
			return nil
		case vt.Implements(c.typ):
			slot.Set(reflect.ValueOf(v))
			return nil
		}
	}
	if vt != c.typ {
		return errors.New(errors.PhaseWrite, errors.KindTypeMismatch).
			HaveType(c.typ.String()).
			WantType(typeName(vt)).
			Detail("held type is fixed at construction").
			Value(v).
			Build()
	}
	slot.Set(reflect.ValueOf(v))
	return nil
}

func typeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}
