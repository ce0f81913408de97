// Package anyhandle provides a shared, reference-counted, lockable handle that
// can erase the static type of the value it holds and recover it later with a
// checked downcast.
//
// # Architecture Overview
//
//	anyhandle/           Handle[T], Erased, guards, Downcast
//	├── errors/          Structured error types (Phase, Kind, Builder)
//	├── registry/        Heterogeneous table of erased handles
//	├── cmd/anyhandle/   CLI for seeding and browsing a registry
//	└── examples/        Runnable walk-through
//
// # Quick Start
//
//	type Config struct{ Retries int }
//
//	// Store a value whose type the receiving code does not know.
//	e := anyhandle.NewErased(Config{Retries: 12})
//
//	// Later, recover it.
//	h, err := anyhandle.Downcast[Config](e)
//	if err != nil {
//	    // e is untouched and still owned by the caller
//	}
//	defer h.Release()
//
//	h.Update(func(c *Config) { c.Retries = 99 })
//	fmt.Println(h.Load().Retries) // 99
//
// # Ownership
//
// Each *Handle or *Erased owns one share of a cell. Clone adds a share and
// Release gives it back. Erase and Downcast consume their input: the share
// moves to the returned handle and the input reports Released. When the
// last share is released the cell is cleared and, if the held value
// implements Dropper, its Drop method runs exactly once.
//
// Using a released or consumed handle panics with an errors.KindReleased
// error.
//
// # Locking
//
// Read returns a shared guard and Write an exclusive one; both block until
// they can be granted and both must be released. Guards pin the cell while
// held but are not owners, so RefCount does not include them. Acquiring a second guard on a cell the same goroutine already holds
// may deadlock and is not supported.
//
// The lock is a sync.RWMutex: a blocked writer keeps new readers out until
// it has run, so writers are not starved. Waiters are not served in FIFO
// order. There are no timeouts; bounded waiting belongs to the caller.
//
// # Type Tags
//
// New tags the cell with the static type argument, NewErased with the
// dynamic type of its argument. Downcast succeeds only on an exact tag
// match; it does not test interface satisfaction. On mismatch it returns an
// error matching ErrTypeMismatch whose Value is the untouched erased handle.
package anyhandle
