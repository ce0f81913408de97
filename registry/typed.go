package registry

import (
	"reflect"

	"github.com/wippyai/anyhandle"
)

// Typed is a view of a Table restricted to entries holding a T.
// Entries of other types stay in the table but are invisible here.
type Typed[T any] struct {
	table *Table
	typ   reflect.Type
}

// NewTyped returns a view of t for values of type T.
func NewTyped[T any](t *Table) *Typed[T] {
	return &Typed[T]{
		table: t,
		typ:   reflect.TypeFor[T](),
	}
}

// Insert wraps v in a new handle and adds it to the underlying table.
func (v *Typed[T]) Insert(val T) (ID, error) {
	return Put(v.table, val)
}

// Get returns a typed owner of the entry under id, if it holds a T.
func (v *Typed[T]) Get(id ID) (*anyhandle.Handle[T], bool) {
	h, err := Lookup[T](v.table, id)
	return h, err == nil
}

// Remove takes the entry out if it holds a T and returns its handle.
func (v *Typed[T]) Remove(id ID) (*anyhandle.Handle[T], bool) {
	e, ok := v.table.removeIf(id, v.typ)
	if !ok {
		return nil, false
	}
	// The tag was checked under the store lock and never changes.
	h, err := anyhandle.Downcast[T](e)
	if err != nil {
		panic(err)
	}
	return h, true
}

// Len returns the number of entries holding a T.
func (v *Typed[T]) Len() int {
	n := 0
	v.table.Each(func(e Entry) bool {
		if e.Type == v.typ {
			n++
		}
		return true
	})
	return n
}

// Each calls fn with a copy of every T in the table until fn returns false.
func (v *Typed[T]) Each(fn func(ID, T) bool) {
	v.table.Each(func(e Entry) bool {
		if e.Type != v.typ {
			return true
		}
		h, ok := v.Get(e.ID)
		if !ok {
			return true
		}
		val := h.Load()
		h.Release()
		return fn(e.ID, val)
	})
}
