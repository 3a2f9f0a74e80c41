package bridge

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/google/gousb"
	"github.com/nixxel-company-limited/escpos-dispatch/adapter"
	"github.com/nixxel-company-limited/escpos-dispatch/escpos"
)

// USBClient is an in-process bridge over libusb. Printers are named by
// their manufacturer and product strings (see adapter.DeviceName).
type USBClient struct {
	logger *log.Logger
}

// NewUSBClient creates a USB bridge client
func NewUSBClient() *USBClient {
	return NewUSBClientWithLogger(log.New(os.Stdout, "[BRIDGE] ", log.LstdFlags|log.Lmsgprefix))
}

// NewUSBClientWithLogger creates a USB bridge client with a custom logger
func NewUSBClientWithLogger(logger *log.Logger) *USBClient {
	return &USBClient{logger: logger}
}

// Connect initializes libusb
func (c *USBClient) Connect(ctx context.Context) (s Session, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// gousb panics when libusb cannot be initialized
	defer func() {
		if r := recover(); r != nil {
			s, err = nil, fmt.Errorf("failed to initialize libusb: %v", r)
		}
	}()

	usbCtx := gousb.NewContext()
	c.logger.Println("USB bridge ready")
	return &usbSession{ctx: usbCtx, logger: c.logger}, nil
}

type usbSession struct {
	ctx    *gousb.Context
	logger *log.Logger
	mu     sync.Mutex
}

func (s *usbSession) Printers(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctx == nil {
		return nil, ErrSessionClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	devices := adapter.FindPrinters(s.ctx)
	names := make([]string, 0, len(devices))
	for _, dev := range devices {
		names = append(names, adapter.DeviceName(dev))
		dev.Close()
	}
	return names, nil
}

// find opens the printer called name and closes every other device
func (s *usbSession) find(name string) *gousb.Device {
	var found *gousb.Device
	for _, dev := range adapter.FindPrinters(s.ctx) {
		if found == nil && adapter.DeviceName(dev) == name {
			found = dev
			continue
		}
		dev.Close()
	}
	return found
}

func (s *usbSession) Print(ctx context.Context, cfg PrinterConfig, buf escpos.Buffer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctx == nil {
		return ErrSessionClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	dev := s.find(cfg.Name)
	if dev == nil {
		return fmt.Errorf("%w: %q", ErrPrinterNotFound, cfg.Name)
	}

	printer := adapter.NewUSBAdapterForDevice(dev)
	defer printer.Close()

	if err := printer.Open(); err != nil {
		return fmt.Errorf("failed to open %q: %w", cfg.Name, err)
	}

	n, err := printer.Write(buf.Bytes())
	if err != nil {
		return fmt.Errorf("write to %q failed: %w", cfg.Name, err)
	}

	s.logger.Printf("Sent %d bytes to %q", n, cfg.Name)
	return nil
}

func (s *usbSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctx == nil {
		return nil
	}
	err := s.ctx.Close()
	s.ctx = nil
	return err
}
