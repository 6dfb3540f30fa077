// Package ioerr defines the tagged error taxonomy every public orchestrator
// operation returns: UnknownName, NoProvider, InvalidArgument, BatchFrozen,
// NotReady, NotSaved, NotImplemented, Io, and Runtime.
package ioerr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind identifies which taxonomy entry an error belongs to.
type Kind int

const (
	KindUnknownName Kind = iota
	KindNoProvider
	KindInvalidArgument
	KindBatchFrozen
	KindNotReady
	KindNotSaved
	KindNotImplemented
	KindIo
	KindRuntime
)

func (k Kind) String() string {
	switch k {
	case KindUnknownName:
		return "UnknownName"
	case KindNoProvider:
		return "NoProvider"
	case KindInvalidArgument:
		return "InvalidArgument"
	case KindBatchFrozen:
		return "BatchFrozen"
	case KindNotReady:
		return "NotReady"
	case KindNotSaved:
		return "NotSaved"
	case KindNotImplemented:
		return "NotImplemented"
	case KindIo:
		return "Io"
	case KindRuntime:
		return "Runtime"
	default:
		return "Unknown"
	}
}

// Error is the concrete tagged error type. Operation, Name, and Domain
// are included in Error() when set, so a diagnostic always names the
// failing operation, the name argument, and the domain (kind, idx) where
// relevant.
type Error struct {
	Kind      Kind
	Operation string
	Name      string
	DomainSet bool
	DomainIdx int
	DomainStr string
	Msg       string
	Wrapped   error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.Operation != "" {
		fmt.Fprintf(&b, " %s()", e.Operation)
	}
	if e.Name != "" {
		fmt.Fprintf(&b, " name=%q", e.Name)
	}
	if e.DomainSet {
		fmt.Fprintf(&b, " domain=(%s,%d)", e.DomainStr, e.DomainIdx)
	}
	if e.Msg != "" {
		fmt.Fprintf(&b, ": %s", e.Msg)
	}
	if e.Wrapped != nil {
		fmt.Fprintf(&b, ": %v", e.Wrapped)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Wrapped }

// Is implements the sentinel-matching protocol for ErrNotImplemented so
// errors.Is(err, ErrNotImplemented) works regardless of the wrapping
// Operation/Name/Domain fields.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && t.Operation == "" && t.Name == ""
}

// New builds a new tagged error.
func New(kind Kind, operation, msg string) *Error {
	return &Error{Kind: kind, Operation: operation, Msg: msg}
}

// Newf builds a new tagged error with a formatted message.
func Newf(kind Kind, operation, format string, args ...interface{}) *Error {
	return New(kind, operation, fmt.Sprintf(format, args...))
}

// WithName attaches the name argument to the error for diagnostics.
func (e *Error) WithName(name string) *Error {
	e.Name = name
	return e
}

// WithDomain attaches the domain argument to the error for diagnostics.
func (e *Error) WithDomain(domainStr string, idx int) *Error {
	e.DomainSet = true
	e.DomainStr = domainStr
	e.DomainIdx = idx
	return e
}

// ErrNotImplemented is the sentinel providers return, and the
// orchestrator returns unconditionally from StartBatchServer.
var ErrNotImplemented = &Error{Kind: KindNotImplemented, Msg: "not implemented"}

// IsNotImplemented reports whether err is (or wraps) ErrNotImplemented.
func IsNotImplemented(err error) bool {
	return errors.Is(err, ErrNotImplemented)
}

// Of reports whether err is a tagged *Error of the given Kind.
func Of(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// Diagnostic accumulates per-candidate failure messages during fallback
// iteration and renders them into one composite InvalidArgument error
// when every candidate has failed.
type Diagnostic struct {
	operation string
	name      string
	failures  []string
}

// NewDiagnostic starts a new diagnostic collector for operation/name.
func NewDiagnostic(operation, name string) *Diagnostic {
	return &Diagnostic{operation: operation, name: name}
}

// Add records one candidate's failure.
func (d *Diagnostic) Add(candidate string, err error) {
	d.failures = append(d.failures, fmt.Sprintf("%s: %v", candidate, err))
}

// Empty reports whether no failure has been recorded.
func (d *Diagnostic) Empty() bool { return len(d.failures) == 0 }

// Err renders the collected failures into one InvalidArgument error.
func (d *Diagnostic) Err() *Error {
	msg := "all candidate providers failed"
	if len(d.failures) > 0 {
		msg += ":\n" + strings.Join(d.failures, "\n")
	}
	return New(KindInvalidArgument, d.operation, msg).WithName(d.name)
}
