package server

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"sync"

	"github.com/google/uuid"
	"github.com/nixxel-company-limited/escpos-dispatch/adapter"
)

// Server is a raw-port print bridge: every byte a client sends is
// forwarded to the printer adapter. One client connection is one job.
type Server struct {
	adapter  adapter.Adapter
	listener net.Listener
	address  string
	mu       sync.Mutex
	running  bool
	wg       sync.WaitGroup
	logger   *log.Logger
}

// New creates a new server instance
func New(device adapter.Adapter, address string) *Server {
	logger := log.New(os.Stdout, "[SERVER] ", log.LstdFlags|log.Lmsgprefix)
	return NewWithLogger(device, address, logger)
}

// NewWithLogger creates a new server instance with a custom logger
func NewWithLogger(device adapter.Adapter, address string, logger *log.Logger) *Server {
	return &Server{
		adapter: device,
		address: address,
		logger:  logger,
	}
}

// listen binds the address and opens the adapter
func (s *Server) listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return errors.New("server already running")
	}

	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		s.logger.Printf("Error: Failed to start server: %v", err)
		return fmt.Errorf("failed to start server: %w", err)
	}

	if !s.adapter.IsOpen() {
		if err := s.adapter.Open(); err != nil {
			listener.Close()
			s.logger.Printf("Error: Failed to open adapter: %v", err)
			return fmt.Errorf("failed to open adapter: %w", err)
		}
		s.logger.Println("Printer adapter opened")
	}

	s.listener = listener
	s.running = true
	s.logger.Printf("Bridge listening on %s", listener.Addr())
	return nil
}

// Start starts the bridge and blocks until Stop is called
func (s *Server) Start() error {
	if err := s.listen(); err != nil {
		return err
	}
	// Stop's Wait covers the accept loop in both start modes
	s.wg.Add(1)
	defer s.wg.Done()
	s.acceptConnections()
	return nil
}

// StartAsync starts the bridge in a goroutine
func (s *Server) StartAsync() error {
	if err := s.listen(); err != nil {
		return err
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.acceptConnections()
	}()
	return nil
}

func (s *Server) acceptConnections() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if !s.IsRunning() {
				return
			}
			s.logger.Printf("Error accepting connection: %v", err)
			continue
		}

		s.wg.Add(1)
		go s.handleConnection(conn)
	}
}

// handleConnection forwards one client's bytes to the printer until EOF
func (s *Server) handleConnection(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	jobID := uuid.NewString()
	client := conn.RemoteAddr().String()
	s.logger.Printf("Job %s started from %s", jobID, client)

	buf := make([]byte, 4096)
	total := 0
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			written, writeErr := s.adapter.Write(buf[:n])
			total += written
			if writeErr != nil {
				s.logger.Printf("Job %s: error writing to printer: %v", jobID, writeErr)
				return
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				s.logger.Printf("Job %s: error reading from %s: %v", jobID, client, err)
			}
			break
		}
	}

	s.logger.Printf("Job %s finished, %d bytes sent to printer", jobID, total)
}

// Stop closes the listener, waits for active jobs and closes the adapter
func (s *Server) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	listener := s.listener
	s.mu.Unlock()

	s.logger.Println("Stopping server...")
	listener.Close()
	s.wg.Wait()

	if s.adapter.IsOpen() {
		if err := s.adapter.Close(); err != nil {
			s.logger.Printf("Error closing adapter: %v", err)
			return err
		}
	}

	s.logger.Println("Server stopped")
	return nil
}

// IsRunning returns whether the server is running
func (s *Server) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Address returns the configured address
func (s *Server) Address() string {
	return s.address
}

// ListenAddr returns the bound address, or nil before Start
func (s *Server) ListenAddr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// GetAdapter returns the underlying adapter
func (s *Server) GetAdapter() adapter.Adapter {
	return s.adapter
}
