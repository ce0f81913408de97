// Package registry provides a heterogeneous table of erased handles.
//
// A Table maps integer IDs (and optional unique names) to anyhandle.Erased
// values of any type. Code that stores values does not need to know their
// types; code that retrieves them asks for a concrete type and gets a typed
// handle or a type mismatch.
//
// # Ownership
//
// Insert takes over the caller's share of the handle. Get and Lookup hand
// out new shares that the caller must release. Remove hands the table's
// share back to the caller; Delete releases it.
//
//	table := registry.New()
//	id, _ := registry.Put(table, Config{Retries: 3})
//
//	cfg, err := registry.Lookup[Config](table, id)
//	if err != nil {
//	    // errors.KindNotFound or errors.KindTypeMismatch
//	}
//	defer cfg.Release()
//
// # Typed Views
//
// Typed[T] filters a table down to entries holding a T:
//
//	configs := registry.NewTyped[Config](table)
//	configs.Each(func(id registry.ID, c Config) bool { ... })
//
// # Observers
//
// Register observers to track entry lifecycle events:
//
//	table.Subscribe(observer)
//
// Observers receive EventInserted, EventRemoved and EventDeleted. They are
// called synchronously without table locks held. Close does not notify.
//
// # IDs
//
// ID 0 is never issued. IDs of removed entries are reused, so holding an ID
// after its entry is gone may reach a different value.
package registry
