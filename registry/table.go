package registry

import (
	"reflect"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/anyhandle"
	"github.com/wippyai/anyhandle/errors"
)

// Table maps IDs to erased handles of any type.
type Table struct {
	store     *store
	observers []Observer
	obsMu     sync.RWMutex
}

// New creates an empty table.
func New() *Table {
	return &Table{
		store: newStore(),
	}
}

// Insert adds h to the table and takes over its share.
func (t *Table) Insert(h *anyhandle.Erased) (ID, error) {
	return t.InsertNamed("", h)
}

// InsertNamed adds h under a unique name. An empty name is anonymous.
// On error the caller keeps ownership of h.
func (t *Table) InsertNamed(name string, h *anyhandle.Erased) (ID, error) {
	if h == nil {
		return 0, errors.New(errors.PhaseRegistry, errors.KindNilPointer).
			Detail("nil handle").
			Build()
	}
	if h.Released() {
		return 0, errors.Released(errors.PhaseRegistry, "erased handle")
	}

	typ := h.Type()
	id, err := t.store.create(name, h)
	if err != nil {
		return 0, err
	}

	Logger().Debug("entry inserted",
		zap.Uint32("id", uint32(id)),
		zap.String("name", name),
		zap.Stringer("type", typ))

	t.emit(EventInserted, Entry{ID: id, Name: name, Type: typ})
	return id, nil
}

// Put wraps v in a new handle and inserts it.
func Put[T any](t *Table, v T) (ID, error) {
	return PutNamed(t, "", v)
}

// PutNamed wraps v in a new handle and inserts it under name.
func PutNamed[T any](t *Table, name string, v T) (ID, error) {
	h := anyhandle.New(v).Erase()
	id, err := t.InsertNamed(name, h)
	if err != nil {
		h.Release()
		return 0, err
	}
	return id, nil
}

// Get returns a new owner of the handle stored under id.
// The caller must release it.
func (t *Table) Get(id ID) (*anyhandle.Erased, bool) {
	return t.store.clone(id)
}

// Find returns the ID registered under name.
func (t *Table) Find(name string) (ID, bool) {
	return t.store.find(name)
}

// Describe returns the name and type of the entry under id.
func (t *Table) Describe(id ID) (Entry, bool) {
	return t.store.describe(id)
}

// Type returns the runtime type tag of the entry under id.
func (t *Table) Type(id ID) (reflect.Type, bool) {
	e, ok := t.store.describe(id)
	return e.Type, ok
}

// Lookup returns a typed owner of the handle stored under id.
// It fails with errors.KindNotFound for unknown IDs and
// errors.KindTypeMismatch when the entry does not hold a T.
func Lookup[T any](t *Table, id ID) (*anyhandle.Handle[T], error) {
	want := reflect.TypeFor[T]()
	path := []string{strconv.FormatUint(uint64(id), 10)}

	info, ok := t.store.describe(id)
	if !ok {
		return nil, errors.NotFound(errors.PhaseRegistry, nil, path[0])
	}
	if info.Type != want {
		return nil, errors.TypeMismatch(errors.PhaseRegistry, path, info.Type.String(), want.String())
	}

	e, ok := t.store.clone(id)
	if !ok {
		return nil, errors.NotFound(errors.PhaseRegistry, nil, path[0])
	}
	// The slot may have been reused between describe and clone.
	h, err := anyhandle.Downcast[T](e)
	if err != nil {
		have := e.Type()
		e.Release()
		return nil, errors.TypeMismatch(errors.PhaseRegistry, path, have.String(), want.String())
	}
	return h, nil
}

// LookupNamed is Lookup by name.
func LookupNamed[T any](t *Table, name string) (*anyhandle.Handle[T], error) {
	id, ok := t.store.find(name)
	if !ok {
		return nil, errors.NotFound(errors.PhaseRegistry, nil, name)
	}
	return Lookup[T](t, id)
}

// Remove takes the entry out and returns its handle; ownership moves to
// the caller.
func (t *Table) Remove(id ID) (*anyhandle.Erased, bool) {
	return t.removeIf(id, nil)
}

// removeIf is Remove for entries tagged typ; nil matches any entry.
func (t *Table) removeIf(id ID, typ reflect.Type) (*anyhandle.Erased, bool) {
	h, info, ok := t.store.dropIf(id, typ)
	if !ok {
		return nil, false
	}

	t.emit(EventRemoved, info)
	return h, true
}

// Delete takes the entry out and releases its handle.
func (t *Table) Delete(id ID) bool {
	h, info, ok := t.store.drop(id)
	if !ok {
		return false
	}
	h.Release()

	Logger().Debug("entry deleted",
		zap.Uint32("id", uint32(id)),
		zap.String("name", info.Name),
		zap.Stringer("type", info.Type))

	t.emit(EventDeleted, info)
	return true
}

func (t *Table) emit(kind EventType, e Entry) {
	t.notify(Event{
		Event: kind,
		ID:    e.ID,
		Name:  e.Name,
		Type:  e.Type,
	})
}

// Subscribe adds an observer for lifecycle events.
func (t *Table) Subscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	t.observers = append(t.observers, o)
}

// Unsubscribe removes an observer.
func (t *Table) Unsubscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	for i, obs := range t.observers {
		if obs == o {
			t.observers = append(t.observers[:i], t.observers[i+1:]...)
			return
		}
	}
}

// Len returns the number of live entries.
func (t *Table) Len() int {
	return t.store.len()
}

// Each calls fn for every live entry until fn returns false.
func (t *Table) Each(fn func(Entry) bool) {
	t.store.each(fn)
}

// Clear deletes all entries.
func (t *Table) Clear() {
	var ids []ID
	t.store.each(func(e Entry) bool {
		ids = append(ids, e.ID)
		return true
	})
	for _, id := range ids {
		t.Delete(id)
	}
}

// Close releases every entry and rejects further inserts.
// Observers are not notified.
func (t *Table) Close() error {
	handles := t.store.close()
	for _, h := range handles {
		h.Release()
	}
	if len(handles) > 0 {
		Logger().Debug("table closed", zap.Int("released", len(handles)))
	}
	return nil
}

// notify calls observers on a copy of the list so they may subscribe or
// unsubscribe from inside the callback.
func (t *Table) notify(e Event) {
	t.obsMu.RLock()
	observers := make([]Observer, len(t.observers))
	copy(observers, t.observers)
	t.obsMu.RUnlock()

	for _, o := range observers {
		o.OnRegistryEvent(e)
	}
}
