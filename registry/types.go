package registry

import "reflect"

// ID is an opaque reference to an entry in a Table.
// ID 0 is reserved and always invalid.
type ID uint32

// EventType identifies a table lifecycle notification.
type EventType uint8

const (
	// EventInserted fires after an entry is added.
	EventInserted EventType = iota
	// EventRemoved fires when an entry is taken out and its handle handed
	// back to the caller.
	EventRemoved
	// EventDeleted fires when an entry is taken out and its handle released.
	EventDeleted
)

func (t EventType) String() string {
	switch t {
	case EventInserted:
		return "inserted"
	case EventRemoved:
		return "removed"
	case EventDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// Event represents a table lifecycle event.
type Event struct {
	Type  reflect.Type
	Name  string
	ID    ID
	Event EventType
}

// Observer receives notifications about table lifecycle events.
// Observers are called without table locks held.
type Observer interface {
	OnRegistryEvent(Event)
}

// Entry describes a live table entry.
type Entry struct {
	Type reflect.Type
	Name string
	ID   ID
}
