// Package bridge is the client side of the printer bridge: a session that
// lists the printers a bridge knows and submits raw jobs to one of them.
package bridge

import (
	"context"
	"errors"

	"github.com/nixxel-company-limited/escpos-dispatch/escpos"
)

var (
	// ErrPrinterNotFound is returned by Print when the bridge does not know the printer name
	ErrPrinterNotFound = errors.New("printer not found")

	// ErrSessionClosed is returned when a closed session is used
	ErrSessionClosed = errors.New("session closed")
)

// PrinterConfig identifies a destination printer by name
type PrinterConfig struct {
	Name string
}

// NewPrinterConfig creates a config for the named printer
func NewPrinterConfig(name string) PrinterConfig {
	return PrinterConfig{Name: name}
}

// Client opens sessions against a bridge
type Client interface {
	Connect(ctx context.Context) (Session, error)
}

// Session is a single open link to a bridge. It must be closed after use.
type Session interface {
	// Printers lists the printer names the bridge knows
	Printers(ctx context.Context) ([]string, error)

	// Print submits buf to the printer described by cfg
	Print(ctx context.Context, cfg PrinterConfig, buf escpos.Buffer) error

	// Close releases the session
	Close() error
}
