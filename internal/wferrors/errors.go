// Package wferrors defines the closed error taxonomy shared by the parser,
// registry and evaluator (spec §7): a typed Kind, a message, an optional
// wrapped cause, and free-form Context for diagnostics.
package wferrors

import "fmt"

// Kind is one of the fixed error categories the language front-end and
// evaluator can raise.
type Kind string

const (
	KindParseError         Kind = "ParseError"
	KindDuplicateSibling   Kind = "DuplicateSibling"
	KindUnknownCommand     Kind = "UnknownCommand"
	KindDependencyCycle    Kind = "DependencyCycle"
	KindUnboundVariable    Kind = "UnboundVariable"
	KindExecFailed         Kind = "ExecFailed"
	KindMalformedCondition Kind = "MalformedCondition"
)

// Fatal reports whether an error of this Kind aborts evaluation. ExecFailed
// and UnboundVariable are non-fatal (logged, evaluation continues).
func (k Kind) Fatal() bool {
	return k != KindExecFailed && k != KindUnboundVariable
}

// Error is a structured error carrying a Kind, message, optional cause and
// arbitrary context (command name, path, offending variable, ...).
type Error struct {
	Kind    Kind
	Message string
	Cause   error
	Context map[string]any
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates an Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message, Context: make(map[string]any)}
}

// Newf creates an Error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return New(kind, fmt.Sprintf(format, args...))
}

// Wrap creates an Error of the given kind wrapping cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause, Context: make(map[string]any)}
}

// With attaches a context key/value and returns the Error for chaining.
func (e *Error) With(key string, value any) *Error {
	e.Context[key] = value
	return e
}

// Is reports whether err is an *Error of the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if as, ok := err.(*Error); ok {
		e = as
	} else {
		return false
	}
	return e.Kind == kind
}

// UnknownCommand builds the UnknownCommand error described in spec §7:
// the prefix of the path that resolved successfully and the segment that
// failed.
func UnknownCommand(prefix []string, failed string) *Error {
	return Newf(KindUnknownCommand, "unknown command %q", failed).
		With("prefix", prefix).
		With("failed_segment", failed)
}

// DependencyCycle builds the DependencyCycle error, naming the full
// activation path including the repeated entry.
func DependencyCycle(path []string) *Error {
	return Newf(KindDependencyCycle, "dependency cycle: %v", path).
		With("path", path)
}
