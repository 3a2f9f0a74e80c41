package adapter

import "errors"

var (
	ErrAlreadyOpen = errors.New("device already open")
	ErrNotOpen     = errors.New("device not open")
	ErrNoPrinter   = errors.New("cannot find printer")
)

// Adapter is a byte transport to a single printer
type Adapter interface {
	// Open opens the connection to the printer
	Open() error

	// Write sends data to the printer
	Write(data []byte) (int, error)

	// Read reads status bytes back from the printer
	Read(buf []byte) (int, error)

	// Close closes the connection to the printer. Closing a closed adapter is a no-op.
	Close() error

	// IsOpen returns whether the connection is open
	IsOpen() bool
}
