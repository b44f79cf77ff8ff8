// Package jerr defines the error kinds shared by the engine, the index,
// the artifact manager, the CLI, and the JSON-RPC tool surface.
package jerr

import "fmt"

// Kind identifies the class of failure a caller needs to branch on.
// The CLI maps a Kind to an exit code; the JSON-RPC surface maps it to
// an {status:"error", error:"<Kind>"} body.
type Kind string

const (
	InvalidArgument    Kind = "InvalidArgument"
	NotFound           Kind = "NotFound"
	InvalidReference   Kind = "InvalidReference"
	TemplateRequired   Kind = "TemplateRequired"
	TemplateNotFound   Kind = "TemplateNotFound"
	MissingTemplateField Kind = "MissingTemplateField"
	DuplicateContent   Kind = "DuplicateContent"
	AppendOnlyViolation Kind = "AppendOnlyViolation"
	LockTimeout        Kind = "LockTimeout"
	IoFailure          Kind = "IoFailure"
	CodecError         Kind = "CodecError"
)

// Error wraps a Kind with a human message and an optional underlying cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds a Kind error with a formatted message.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds a Kind error around an underlying cause.
func Wrap(kind Kind, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// As reports whether err (or something it wraps) is a *Error, and returns it.
func As(err error) (*Error, bool) {
	var e *Error
	if err == nil {
		return nil, false
	}
	if je, ok := err.(*Error); ok {
		return je, true
	}
	if u, ok := err.(interface{ Unwrap() error }); ok {
		return As(u.Unwrap())
	}
	_ = e
	return nil, false
}

// KindOf returns the Kind of err, defaulting to IoFailure for opaque errors.
func KindOf(err error) Kind {
	if je, ok := As(err); ok {
		return je.Kind
	}
	return IoFailure
}

// ExitCode maps a Kind to the CLI exit codes from the spec's §6.
func ExitCode(kind Kind) int {
	switch kind {
	case NotFound:
		return 3
	case InvalidArgument, InvalidReference, TemplateRequired, TemplateNotFound,
		MissingTemplateField, DuplicateContent:
		return 4
	case LockTimeout, IoFailure, CodecError, AppendOnlyViolation:
		return 1
	default:
		return 1
	}
}
