/*
Package errs defines the error taxonomy shared by the storage engine.

Every error the engine returns is either a Kind (a sentinel which callers
can compare against with errors.Is) wrapped in an *Error carrying the
component and detail that produced it, or a plain Go error bubbling up
from the standard library.
*/
package errs

import "fmt"

/*
Kind identifies the broad category of a storage engine error, as laid
out in the error taxonomy.
*/
type Kind string

/*
Error kinds recognised by the storage engine.
*/
const (
	NotFound     Kind = "not-found"
	Duplicate    Kind = "duplicate"
	OutOfRange   Kind = "out-of-range"
	IO           Kind = "io"
	Corruption   Kind = "corruption"
	Busy         Kind = "busy"
	InvalidState Kind = "invalid-state"
)

/*
Error is a storage engine error. Kind identifies the category for
equality checks with errors.Is; Component names the subsystem (e.g. "disk",
"block", "index", "txlog", "graph"); Detail carries a human readable
explanation.
*/
type Error struct {
	Kind      Kind
	Component string
	Detail    string
}

/*
New creates a new *Error of the given kind.
*/
func New(kind Kind, component, detail string) *Error {
	return &Error{Kind: kind, Component: component, Detail: detail}
}

/*
Error returns a human readable representation of the error.
*/
func (e *Error) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: %s", e.Component, e.Kind)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Component, e.Kind, e.Detail)
}

/*
Is allows errors.Is(err, errs.NotFound) style comparisons against a bare
Kind value.
*/
func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && e.Kind == k
}

/*
Error satisfies the error interface for a bare Kind so that sentinels
can be compared directly or used as errors.Is targets.
*/
func (k Kind) Error() string {
	return string(k)
}
