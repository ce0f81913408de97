package errors

import (
	"fmt"
	"strings"
)

// Phase indicates which operation raised the error
type Phase string

const (
	PhaseConstruct Phase = "construct" // handle construction
	PhaseDowncast  Phase = "downcast"  // erased to typed conversion
	PhaseAccess    Phase = "access"    // read/write guard acquisition
	PhaseWrite     Phase = "write"     // storing through a write guard
	PhaseRelease   Phase = "release"   // owner release and teardown
	PhaseRegistry  Phase = "registry"  // registry table operations
	PhaseConfig    Phase = "config"    // seed file loading
)

// Kind categorizes the error
type Kind string

const (
	KindTypeMismatch Kind = "type_mismatch"
	KindReleased     Kind = "released"
	KindNotFound     Kind = "not_found"
	KindClosed       Kind = "closed"
	KindInvalidInput Kind = "invalid_input"
	KindNilPointer   Kind = "nil_pointer"
	KindUnsupported  Kind = "unsupported"
)

// Error is the structured error type used throughout the library
type Error struct {
	Value    any
	Cause    error
	Phase    Phase
	Kind     Kind
	HaveType string
	WantType string
	Detail   string
	Path     []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	hasTypes := e.HaveType != "" || e.WantType != ""
	if hasTypes {
		b.WriteString(": ")
		switch {
		case e.HaveType != "" && e.WantType != "":
			b.WriteString("holds ")
			b.WriteString(e.HaveType)
			b.WriteString(", want ")
			b.WriteString(e.WantType)
		case e.HaveType != "":
			b.WriteString("holds ")
			b.WriteString(e.HaveType)
		default:
			b.WriteString("want ")
			b.WriteString(e.WantType)
		}
	}

	if e.Detail != "" {
		if hasTypes {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error.
// Kinds must be equal; phases are compared only when the target sets one.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if e.Kind != t.Kind {
		return false
	}
	return t.Phase == "" || e.Phase == t.Phase
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the registry path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// HaveType sets the name of the type actually held
func (b *Builder) HaveType(t string) *Builder {
	b.err.HaveType = t
	return b
}

// WantType sets the name of the type the caller asked for
func (b *Builder) WantType(t string) *Builder {
	b.err.WantType = t
	return b
}

// Value attaches the offending value. A rejected downcast puts the
// untouched erased handle here.
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// TypeMismatch creates a type mismatch error
func TypeMismatch(phase Phase, path []string, haveType, wantType string) *Error {
	return &Error{
		Phase:    phase,
		Kind:     KindTypeMismatch,
		Path:     path,
		HaveType: haveType,
		WantType: wantType,
	}
}

// Released creates an error for use of a released or consumed handle
func Released(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindReleased,
		Detail: what + " used after release",
	}
}

// NotFound creates a not found error
func NotFound(phase Phase, path []string, key string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Path:   path,
		Detail: fmt.Sprintf("%q not found", key),
		Value:  key,
	}
}

// Closed creates an error for operations on a closed table
func Closed(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindClosed,
		Detail: what + " is closed",
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, path []string, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Path:   path,
		Detail: detail,
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}
