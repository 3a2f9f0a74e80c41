package adapter

import (
	"errors"
	"fmt"
	"log"
	"runtime"
	"strings"
	"sync"

	"github.com/google/gousb"
)

// USBAdapter talks to a printer-class USB device through libusb
type USBAdapter struct {
	ctx     *gousb.Context
	ownsCtx bool
	device  *gousb.Device
	config  *gousb.Config
	iface   *gousb.Interface
	out     *gousb.OutEndpoint
	in      *gousb.InEndpoint
	isOpen  bool
	mu      sync.Mutex
}

// NewUSBAdapter opens the device with the given VID/PID. If that device is
// not present (or vid and pid are zero) the first printer found is used.
func NewUSBAdapter(vid, pid uint16) (*USBAdapter, error) {
	ctx := gousb.NewContext()

	if vid != 0 || pid != 0 {
		device, err := GetDeviceByVIDPID(ctx, vid, pid)
		if err == nil {
			return &USBAdapter{ctx: ctx, ownsCtx: true, device: device}, nil
		}
		log.Printf("USB device %04x:%04x: %v, falling back to auto-detection", vid, pid, err)
	}

	devices := FindPrinters(ctx)
	if len(devices) == 0 {
		ctx.Close()
		return nil, ErrNoPrinter
	}
	for _, d := range devices[1:] {
		d.Close()
	}

	return &USBAdapter{ctx: ctx, ownsCtx: true, device: devices[0]}, nil
}

// NewUSBAdapterAuto creates an adapter for the first printer found
func NewUSBAdapterAuto() (*USBAdapter, error) {
	return NewUSBAdapter(0, 0)
}

// NewUSBAdapterForDevice wraps an already opened device. The caller keeps
// ownership of the context the device came from.
func NewUSBAdapterForDevice(dev *gousb.Device) *USBAdapter {
	return &USBAdapter{device: dev}
}

// printerInterface returns the number of the first printer-class interface
func printerInterface(desc gousb.ConfigDesc) (int, bool) {
	for _, iface := range desc.Interfaces {
		for _, alt := range iface.AltSettings {
			if alt.Class == gousb.ClassPrinter {
				return iface.Number, true
			}
		}
	}
	return 0, false
}

// IsPrinter checks if a device exposes a printer-class interface
func IsPrinter(dev *gousb.Device) bool {
	if dev == nil {
		return false
	}

	cfgNum, err := dev.ActiveConfigNum()
	if err != nil {
		return false
	}
	desc, ok := dev.Desc.Configs[cfgNum]
	if !ok {
		return false
	}

	_, ok = printerInterface(desc)
	return ok
}

// FindPrinters opens every attached USB printer. Non-printer devices are closed.
func FindPrinters(ctx *gousb.Context) []*gousb.Device {
	printers := []*gousb.Device{}

	// OpenDevices may return partial results alongside an error
	devices, err := ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		return true
	})
	if err != nil {
		log.Printf("USB enumeration: %v", err)
	}

	for _, dev := range devices {
		if IsPrinter(dev) {
			printers = append(printers, dev)
		} else {
			dev.Close()
		}
	}

	return printers
}

// DeviceName returns "<manufacturer> <product>" for a device, or
// "usb:<vid>:<pid>" when the device has no string descriptors.
func DeviceName(dev *gousb.Device) string {
	if dev == nil {
		return ""
	}

	var parts []string
	if m, err := dev.Manufacturer(); err == nil && strings.TrimSpace(m) != "" {
		parts = append(parts, strings.TrimSpace(m))
	}
	if p, err := dev.Product(); err == nil && strings.TrimSpace(p) != "" {
		parts = append(parts, strings.TrimSpace(p))
	}
	if len(parts) == 0 {
		return fmt.Sprintf("usb:%s:%s", dev.Desc.Vendor, dev.Desc.Product)
	}
	return strings.Join(parts, " ")
}

// GetDeviceByVIDPID opens a device by VID and PID
func GetDeviceByVIDPID(ctx *gousb.Context, vid, pid uint16) (*gousb.Device, error) {
	device, err := ctx.OpenDeviceWithVIDPID(gousb.ID(vid), gousb.ID(pid))
	if err != nil {
		return nil, err
	}
	if device == nil {
		return nil, errors.New("device not found")
	}
	return device, nil
}

// Open claims the printer interface and its bulk endpoints
func (a *USBAdapter) Open() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.isOpen {
		return ErrAlreadyOpen
	}
	if a.device == nil {
		return errors.New("device not found")
	}

	if runtime.GOOS == "linux" {
		_ = a.device.SetAutoDetach(true)
	}

	cfgNum, err := a.device.ActiveConfigNum()
	if err != nil {
		return fmt.Errorf("failed to get active config: %w", err)
	}

	cfg, err := a.device.Config(cfgNum)
	if err != nil {
		return fmt.Errorf("failed to get config: %w", err)
	}

	ifaceNum, ok := printerInterface(cfg.Desc)
	if !ok {
		cfg.Close()
		return errors.New("no printer interface found")
	}

	iface, err := cfg.Interface(ifaceNum, 0)
	if err != nil {
		cfg.Close()
		return fmt.Errorf("failed to claim interface: %w", err)
	}

	var out *gousb.OutEndpoint
	var in *gousb.InEndpoint
	for _, ep := range iface.Setting.Endpoints {
		switch {
		case ep.Direction == gousb.EndpointDirectionOut && out == nil:
			if e, err := iface.OutEndpoint(ep.Number); err == nil {
				out = e
			}
		case ep.Direction == gousb.EndpointDirectionIn && in == nil:
			if e, err := iface.InEndpoint(ep.Number); err == nil {
				in = e
			}
		}
	}

	if out == nil {
		iface.Close()
		cfg.Close()
		return errors.New("cannot find output endpoint from printer")
	}

	a.config = cfg
	a.iface = iface
	a.out = out
	a.in = in
	a.isOpen = true
	return nil
}

// Write sends data to the printer
func (a *USBAdapter) Write(data []byte) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.isOpen {
		return 0, ErrNotOpen
	}

	n, err := a.out.Write(data)
	if err != nil {
		return n, fmt.Errorf("write failed: %w", err)
	}
	return n, nil
}

// Read reads from the printer's IN endpoint, if it has one
func (a *USBAdapter) Read(buf []byte) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.isOpen {
		return 0, ErrNotOpen
	}
	if a.in == nil {
		return 0, errors.New("input endpoint not available")
	}

	n, err := a.in.Read(buf)
	if err != nil {
		return n, fmt.Errorf("read failed: %w", err)
	}
	return n, nil
}

// Close releases the interface, the device and, when owned, the context
func (a *USBAdapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	var errs []error

	if a.iface != nil {
		a.iface.Close()
		a.iface = nil
	}
	if a.config != nil {
		if err := a.config.Close(); err != nil {
			errs = append(errs, err)
		}
		a.config = nil
	}
	if a.device != nil {
		if err := a.device.Close(); err != nil {
			errs = append(errs, err)
		}
		a.device = nil
	}
	if a.ctx != nil && a.ownsCtx {
		if err := a.ctx.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.ctx = nil
	a.out = nil
	a.in = nil
	a.isOpen = false

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %w", errors.Join(errs...))
	}
	return nil
}

// IsOpen returns whether the device is open
func (a *USBAdapter) IsOpen() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.isOpen
}

// Name returns the device's display name
func (a *USBAdapter) Name() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return DeviceName(a.device)
}
