// Package errors provides structured error types for the anyhandle library.
//
// Errors are categorized by Phase (which operation raised it) and Kind (error
// category). The Error type carries the concrete type held by a handle, the
// type the caller asked for, a registry path and an optional cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseDowncast, errors.KindTypeMismatch).
//		Path("plugins", "7").
//		HaveType("*main.Config").
//		WantType("string").
//		Detail("entry is not a string").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.TypeMismatch(errors.PhaseDowncast, nil, "int", "string")
//	err := errors.NotFound(errors.PhaseRegistry, path, "7")
//
// All errors implement the standard error interface and support errors.Is/As.
// A target with an empty Phase matches errors of its Kind raised in any phase.
package errors
