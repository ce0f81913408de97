package registry

import (
	"reflect"
	"sync"

	"github.com/wippyai/anyhandle"
	"github.com/wippyai/anyhandle/errors"
)

// store is the slot storage behind a Table. Freed slots are reused.
// Handles it gives back are released by the caller, outside the lock.
type store struct {
	entries  []entry
	freeList []ID
	names    map[string]ID
	mu       sync.RWMutex
	closed   bool
}

type entry struct {
	handle *anyhandle.Erased
	typ    reflect.Type
	name   string
	valid  bool
}

func newStore() *store {
	return &store{
		entries:  make([]entry, 0, 64),
		freeList: make([]ID, 0, 16),
		names:    make(map[string]ID),
	}
}

func (s *store) create(name string, h *anyhandle.Erased) (ID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, errors.Closed(errors.PhaseRegistry, "table")
	}
	if name != "" {
		if _, dup := s.names[name]; dup {
			return 0, errors.New(errors.PhaseRegistry, errors.KindInvalidInput).
				Path(name).
				Detail("name already registered").
				Build()
		}
	}

	e := entry{
		handle: h,
		typ:    h.Type(),
		name:   name,
		valid:  true,
	}

	var id ID
	if len(s.freeList) > 0 {
		id = s.freeList[len(s.freeList)-1]
		s.freeList = s.freeList[:len(s.freeList)-1]
		s.entries[id-1] = e
	} else {
		s.entries = append(s.entries, e)
		id = ID(len(s.entries))
	}
	if name != "" {
		s.names[name] = id
	}
	return id, nil
}

// lookup returns the entry for id. Callers hold s.mu.
func (s *store) lookup(id ID) (*entry, bool) {
	if id == 0 || int(id) > len(s.entries) {
		return nil, false
	}
	e := &s.entries[id-1]
	if !e.valid {
		return nil, false
	}
	return e, true
}

// clone returns a new owner of the entry's handle.
func (s *store) clone(id ID) (*anyhandle.Erased, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.lookup(id)
	if !ok {
		return nil, false
	}
	return e.handle.Clone(), true
}

func (s *store) describe(id ID) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.lookup(id)
	if !ok {
		return Entry{}, false
	}
	return Entry{ID: id, Name: e.name, Type: e.typ}, true
}

func (s *store) find(name string) (ID, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.names[name]
	return id, ok
}

// drop takes the entry out and hands its handle to the caller.
func (s *store) drop(id ID) (*anyhandle.Erased, Entry, bool) {
	return s.dropIf(id, nil)
}

// dropIf is drop restricted to entries tagged typ. A nil typ matches any
// entry. The check and the removal share one critical section.
func (s *store) dropIf(id ID, typ reflect.Type) (*anyhandle.Erased, Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.lookup(id)
	if !ok || (typ != nil && e.typ != typ) {
		return nil, Entry{}, false
	}

	h := e.handle
	info := Entry{ID: id, Name: e.name, Type: e.typ}
	if e.name != "" {
		delete(s.names, e.name)
	}
	*e = entry{}
	s.freeList = append(s.freeList, id)

	return h, info, true
}

// close marks the store closed and hands back every live handle.
func (s *store) close() []*anyhandle.Erased {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	var handles []*anyhandle.Erased
	for i := range s.entries {
		if s.entries[i].valid {
			handles = append(handles, s.entries[i].handle)
		}
	}

	s.entries = nil
	s.freeList = nil
	s.names = nil
	return handles
}

func (s *store) len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, e := range s.entries {
		if e.valid {
			count++
		}
	}
	return count
}

// each iterates over a snapshot so fn may call back into the table.
func (s *store) each(fn func(Entry) bool) {
	s.mu.RLock()
	snapshot := make([]Entry, 0, len(s.entries))
	for i, e := range s.entries {
		if e.valid {
			snapshot = append(snapshot, Entry{ID: ID(i + 1), Name: e.name, Type: e.typ})
		}
	}
	s.mu.RUnlock()

	for _, e := range snapshot {
		if !fn(e) {
			break
		}
	}
}
