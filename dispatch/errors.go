package dispatch

import "fmt"

// Kind says which step of a dispatch failed
type Kind string

const (
	// KindConnection: the bridge was unreachable or refused the session
	KindConnection Kind = "connection_error"
	// KindDiscovery: listing printers failed
	KindDiscovery Kind = "discovery_error"
	// KindSubmission: the bridge rejected the job
	KindSubmission Kind = "submission_error"
	// KindDisconnect: closing the session failed. Logged, never returned.
	KindDisconnect Kind = "disconnect_error"
)

// Error is the failure of one dispatch step
type Error struct {
	Kind    Kind
	Printer string
	Err     error
}

func (e *Error) Error() string {
	if e.Printer != "" {
		return fmt.Sprintf("%s: printer %q: %v", e.Kind, e.Printer, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func wrap(kind Kind, printer string, err error) *Error {
	return &Error{Kind: kind, Printer: printer, Err: err}
}
