// Package dispatch sends one raw job through a bridge session: connect,
// list printers, submit, disconnect.
package dispatch

import (
	"context"
	"errors"
	"log"
	"os"

	"github.com/nixxel-company-limited/escpos-dispatch/bridge"
	"github.com/nixxel-company-limited/escpos-dispatch/escpos"
)

// Dispatcher prints a fixed buffer on a named printer
type Dispatcher struct {
	client  bridge.Client
	printer string
	buffer  escpos.Buffer
	logger  *log.Logger
}

// New creates a dispatcher that prints the test page with text on printer
func New(client bridge.Client, printer, text string) *Dispatcher {
	return NewWithBuffer(client, printer, escpos.TestPage(text))
}

// NewWithBuffer creates a dispatcher that prints buf on printer
func NewWithBuffer(client bridge.Client, printer string, buf escpos.Buffer) *Dispatcher {
	logger := log.New(os.Stdout, "[DISPATCH] ", log.LstdFlags|log.Lmsgprefix)
	return NewWithLogger(client, printer, buf, logger)
}

// NewWithLogger creates a dispatcher for an arbitrary buffer with a custom logger
func NewWithLogger(client bridge.Client, printer string, buf escpos.Buffer, logger *log.Logger) *Dispatcher {
	return &Dispatcher{
		client:  client,
		printer: printer,
		buffer:  buf,
		logger:  logger,
	}
}

// Printer returns the destination printer name
func (d *Dispatcher) Printer() string {
	return d.printer
}

// Buffer returns the job sent on every dispatch
func (d *Dispatcher) Buffer() escpos.Buffer {
	return d.buffer
}

// Dispatch runs the sequence once. The returned error is a *Error for
// connection, discovery and submission failures; reporting it is left to
// the caller. A failed disconnect is logged and does not affect the result.
func (d *Dispatcher) Dispatch(ctx context.Context) error {
	session, err := d.client.Connect(ctx)
	if err != nil {
		return wrap(KindConnection, "", err)
	}
	defer d.disconnect(session)

	printers, err := session.Printers(ctx)
	if err != nil {
		return wrap(KindDiscovery, "", err)
	}
	// Discovery does not gate selection; an unknown name is rejected by the bridge at submission
	d.logger.Printf("Available printers: %q", printers)

	cfg := bridge.NewPrinterConfig(d.printer)
	if err := session.Print(ctx, cfg, d.buffer); err != nil {
		return wrap(KindSubmission, cfg.Name, err)
	}

	d.logger.Printf("Printed %d bytes on %q", d.buffer.Len(), cfg.Name)
	return nil
}

func (d *Dispatcher) disconnect(session bridge.Session) {
	if err := session.Close(); err != nil {
		d.logger.Printf("Warning: %v", wrap(KindDisconnect, "", err))
	}
}

// KindOf returns the Kind of a dispatch error, or "" if err is not one
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}
