package adapter

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"go.bug.st/serial"
)

// DefaultBaudRate is used when SerialAdapter is created with a zero baud rate
const DefaultBaudRate = 9600

// SerialAdapter talks to a printer on a serial or USB-CDC port
type SerialAdapter struct {
	portName string
	mode     *serial.Mode
	port     serial.Port
	mu       sync.Mutex
}

// NewSerialAdapter creates an adapter for portName using 8N1 framing
func NewSerialAdapter(portName string, baudRate int) *SerialAdapter {
	if baudRate <= 0 {
		baudRate = DefaultBaudRate
	}
	return &SerialAdapter{
		portName: portName,
		mode: &serial.Mode{
			BaudRate: baudRate,
			Parity:   serial.NoParity,
			DataBits: 8,
			StopBits: serial.OneStopBit,
		},
	}
}

// SerialPorts lists the serial ports present on the system
func SerialPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}
	return ports, nil
}

// PortName returns the configured port name
func (s *SerialAdapter) PortName() string {
	return s.portName
}

// BaudRate returns the configured baud rate
func (s *SerialAdapter) BaudRate() int {
	return s.mode.BaudRate
}

// Open opens the serial port
func (s *SerialAdapter) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.port != nil {
		return ErrAlreadyOpen
	}

	ports, err := SerialPorts()
	if err != nil {
		return err
	}
	if !slices.Contains(ports, s.portName) {
		return fmt.Errorf("serial port %s not found", s.portName)
	}

	port, err := serial.Open(s.portName, s.mode)
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", s.portName, err)
	}
	if err := port.SetReadTimeout(100 * time.Millisecond); err != nil {
		port.Close()
		return fmt.Errorf("failed to set read timeout: %w", err)
	}

	s.port = port
	return nil
}

// Write sends data to the printer
func (s *SerialAdapter) Write(data []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.port == nil {
		return 0, ErrNotOpen
	}
	n, err := s.port.Write(data)
	if err != nil {
		return n, fmt.Errorf("write failed: %w", err)
	}
	return n, nil
}

// Read reads from the port, returning after the read timeout if no data arrives
func (s *SerialAdapter) Read(buf []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.port == nil {
		return 0, ErrNotOpen
	}
	n, err := s.port.Read(buf)
	if err != nil {
		return n, fmt.Errorf("read failed: %w", err)
	}
	return n, nil
}

// Close closes the port
func (s *SerialAdapter) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.port == nil {
		return nil
	}
	err := s.port.Close()
	s.port = nil
	return err
}

// IsOpen returns whether the port is open
func (s *SerialAdapter) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port != nil
}
