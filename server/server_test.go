package server

import (
	"bytes"
	"errors"
	"io"
	"log"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/nixxel-company-limited/escpos-dispatch/adapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockAdapter is an in-memory printer
type MockAdapter struct {
	mu        sync.Mutex
	open      bool
	openErr   error
	writeErr  error
	writeData []byte
}

func (m *MockAdapter) Open() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.openErr != nil {
		return m.openErr
	}
	m.open = true
	return nil
}

func (m *MockAdapter) Write(data []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return 0, m.writeErr
	}
	m.writeData = append(m.writeData, data...)
	return len(data), nil
}

func (m *MockAdapter) Read(buf []byte) (int, error) {
	return 0, nil
}

func (m *MockAdapter) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.open = false
	return nil
}

func (m *MockAdapter) IsOpen() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.open
}

func (m *MockAdapter) Written() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return bytes.Clone(m.writeData)
}

var _ adapter.Adapter = (*MockAdapter)(nil)

func quietServer(device adapter.Adapter) *Server {
	return NewWithLogger(device, "127.0.0.1:0", log.New(io.Discard, "", 0))
}

func TestNewServer(t *testing.T) {
	mockAdapter := &MockAdapter{}
	address := "localhost:9100"

	server := New(mockAdapter, address)

	assert.Equal(t, address, server.Address())
	assert.False(t, server.IsRunning())
	assert.Nil(t, server.ListenAddr())
	assert.Equal(t, mockAdapter, server.GetAdapter())
}

func TestServerStartStop(t *testing.T) {
	mockAdapter := &MockAdapter{}
	server := quietServer(mockAdapter)

	err := server.StartAsync()
	require.NoError(t, err)
	assert.True(t, server.IsRunning())
	assert.True(t, mockAdapter.IsOpen())
	assert.NotNil(t, server.ListenAddr())

	err = server.StartAsync()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "already running")

	err = server.Stop()
	require.NoError(t, err)
	assert.False(t, server.IsRunning())
	assert.False(t, mockAdapter.IsOpen())

	// second stop is a no-op
	assert.NoError(t, server.Stop())
}

func TestServerConnection(t *testing.T) {
	mockAdapter := &MockAdapter{}
	server := quietServer(mockAdapter)

	require.NoError(t, server.StartAsync())

	conn, err := net.Dial("tcp", server.ListenAddr().String())
	require.NoError(t, err)

	testData := []byte("\x1B\x40Hello Rongta!\n\x1D\x56\x41\x03")
	n, err := conn.Write(testData)
	require.NoError(t, err)
	assert.Equal(t, len(testData), n)
	require.NoError(t, conn.Close())

	assert.Eventually(t, func() bool {
		return bytes.Equal(testData, mockAdapter.Written())
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, server.Stop())
}

func TestServerMultipleConnections(t *testing.T) {
	mockAdapter := &MockAdapter{}
	server := quietServer(mockAdapter)

	require.NoError(t, server.StartAsync())

	for i := 0; i < 3; i++ {
		conn, err := net.Dial("tcp", server.ListenAddr().String())
		require.NoError(t, err)
		_, err = conn.Write([]byte{byte(i + 1)})
		require.NoError(t, err)
		require.NoError(t, conn.Close())
	}

	assert.Eventually(t, func() bool {
		return len(mockAdapter.Written()) == 3
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, server.Stop())
}

func TestServerWriteError(t *testing.T) {
	mockAdapter := &MockAdapter{writeErr: errors.New("paper out")}
	server := quietServer(mockAdapter)

	require.NoError(t, server.StartAsync())
	defer server.Stop()

	conn, err := net.Dial("tcp", server.ListenAddr().String())
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte{0x1B, 0x40})
	require.NoError(t, err)

	// the bridge drops the connection after a printer error
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	_, err = conn.Read(make([]byte, 1))
	assert.ErrorIs(t, err, io.EOF)
}

func TestServerAdapterOpenFailure(t *testing.T) {
	mockAdapter := &MockAdapter{openErr: errors.New("no device")}
	server := quietServer(mockAdapter)

	err := server.StartAsync()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open adapter")
	assert.False(t, server.IsRunning())
}

func TestServerAddress(t *testing.T) {
	mockAdapter := &MockAdapter{}
	testCases := []string{
		"localhost:9100",
		"0.0.0.0:9100",
		":9100",
	}

	for _, addr := range testCases {
		t.Run(addr, func(t *testing.T) {
			server := New(mockAdapter, addr)
			assert.Equal(t, addr, server.Address())
		})
	}
}

func TestServerInvalidAddress(t *testing.T) {
	mockAdapter := &MockAdapter{}
	server := NewWithLogger(mockAdapter, "invalid:address:9100", log.New(io.Discard, "", 0))

	err := server.StartAsync()
	assert.Error(t, err)
	assert.False(t, server.IsRunning())
	assert.False(t, mockAdapter.IsOpen())
}

func TestServerStartBlocking(t *testing.T) {
	mockAdapter := &MockAdapter{}
	server := quietServer(mockAdapter)

	started := make(chan error, 1)
	go func() {
		started <- server.Start()
	}()

	require.Eventually(t, server.IsRunning, time.Second, 10*time.Millisecond)

	conn, err := net.Dial("tcp", server.ListenAddr().String())
	require.NoError(t, err)
	_, err = conn.Write([]byte("Blocking test"))
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	assert.Eventually(t, func() bool {
		return string(mockAdapter.Written()) == "Blocking test"
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, server.Stop())

	select {
	case err := <-started:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Start() did not return after Stop()")
	}
}

func TestServerStartBlockingStopDuringConnections(t *testing.T) {
	for i := 0; i < 20; i++ {
		mockAdapter := &MockAdapter{}
		server := quietServer(mockAdapter)

		started := make(chan error, 1)
		go func() {
			started <- server.Start()
		}()
		require.Eventually(t, server.IsRunning, time.Second, time.Millisecond)
		address := server.ListenAddr().String()

		var clients sync.WaitGroup
		for c := 0; c < 4; c++ {
			clients.Add(1)
			go func() {
				defer clients.Done()
				conn, err := net.Dial("tcp", address)
				if err != nil {
					return
				}
				conn.Write([]byte{0x1B, 0x40})
				conn.Close()
			}()
		}

		require.NoError(t, server.Stop())
		clients.Wait()

		select {
		case err := <-started:
			assert.NoError(t, err)
		case <-time.After(time.Second):
			t.Fatal("Start() did not return after Stop()")
		}
		assert.False(t, mockAdapter.IsOpen())
	}
}

func TestServerWithRealUSBAdapter(t *testing.T) {
	usbAdapter, err := adapter.NewUSBAdapterAuto()
	if err != nil {
		t.Skip("No USB printer found, skipping test")
	}
	defer usbAdapter.Close()

	server := quietServer(usbAdapter)
	require.NoError(t, server.StartAsync())
	defer server.Stop()

	conn, err := net.Dial("tcp", server.ListenAddr().String())
	require.NoError(t, err)
	defer conn.Close()

	initCmd := []byte{0x1B, 0x40} // ESC @
	n, err := conn.Write(initCmd)
	require.NoError(t, err)
	assert.Equal(t, len(initCmd), n)
}
