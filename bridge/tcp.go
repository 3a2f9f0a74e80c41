package bridge

import (
	"context"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/nixxel-company-limited/escpos-dispatch/escpos"
)

// DefaultDialTimeout applies when TCPClient.DialTimeout is zero
const DefaultDialTimeout = 5 * time.Second

// TCPClient connects to a raw-port bridge such as the one in package server.
// A raw bridge has no enumeration of its own, so the printers it serves are
// the names bound to its address.
type TCPClient struct {
	Address      string
	PrinterNames []string
	DialTimeout  time.Duration
	logger       *log.Logger
}

// NewTCPClient creates a client for the bridge at address serving the given printers
func NewTCPClient(address string, printers ...string) *TCPClient {
	logger := log.New(os.Stdout, "[BRIDGE] ", log.LstdFlags|log.Lmsgprefix)
	return NewTCPClientWithLogger(address, logger, printers...)
}

// NewTCPClientWithLogger creates a client with a custom logger
func NewTCPClientWithLogger(address string, logger *log.Logger, printers ...string) *TCPClient {
	return &TCPClient{
		Address:      address,
		PrinterNames: printers,
		DialTimeout:  DefaultDialTimeout,
		logger:       logger,
	}
}

// Connect dials the bridge
func (c *TCPClient) Connect(ctx context.Context) (Session, error) {
	timeout := c.DialTimeout
	if timeout <= 0 {
		timeout = DefaultDialTimeout
	}

	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", c.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to bridge %s: %w", c.Address, err)
	}
	c.logger.Printf("Connected to bridge %s", conn.RemoteAddr())

	return &tcpSession{
		conn:     conn,
		printers: slices.Clone(c.PrinterNames),
		logger:   c.logger,
	}, nil
}

type tcpSession struct {
	conn     net.Conn
	printers []string
	logger   *log.Logger
	mu       sync.Mutex
	closed   bool
}

func (s *tcpSession) Printers(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrSessionClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return slices.Clone(s.printers), nil
}

func (s *tcpSession) Print(ctx context.Context, cfg PrinterConfig, buf escpos.Buffer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}
	if !slices.Contains(s.printers, cfg.Name) {
		return fmt.Errorf("%w: %q", ErrPrinterNotFound, cfg.Name)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = s.conn.SetWriteDeadline(deadline)
		defer s.conn.SetWriteDeadline(time.Time{})
	}

	data := buf.Bytes()
	n, err := s.conn.Write(data)
	if err != nil {
		return fmt.Errorf("write to %q failed: %w", cfg.Name, err)
	}
	if n != len(data) {
		return fmt.Errorf("write to %q failed: %w", cfg.Name, io.ErrShortWrite)
	}

	s.logger.Printf("Sent %d bytes to %q", n, cfg.Name)
	return nil
}

func (s *tcpSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.conn.Close()
}
