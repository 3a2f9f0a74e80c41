package bridge

import (
	"bytes"
	"context"
	"io"
	"log"
	"net"
	"testing"
	"time"

	"github.com/nixxel-company-limited/escpos-dispatch/escpos"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// listen starts a loopback listener that collects everything one client sends
func listen(t *testing.T) (string, <-chan []byte) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	received := make(chan []byte, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		data, _ := io.ReadAll(conn)
		received <- data
	}()

	return ln.Addr().String(), received
}

func quietClient(address string, printers ...string) *TCPClient {
	return NewTCPClientWithLogger(address, log.New(io.Discard, "", 0), printers...)
}

func TestNewTCPClient(t *testing.T) {
	c := NewTCPClient("localhost:9100", "Rongta-80")
	assert.Equal(t, "localhost:9100", c.Address)
	assert.Equal(t, []string{"Rongta-80"}, c.PrinterNames)
	assert.Equal(t, DefaultDialTimeout, c.DialTimeout)
}

func TestTCPSessionPrint(t *testing.T) {
	address, received := listen(t)
	client := quietClient(address, "Rongta-80")

	session, err := client.Connect(context.Background())
	require.NoError(t, err)

	printers, err := session.Printers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Rongta-80"}, printers)

	buf := escpos.TestPage("")
	err = session.Print(context.Background(), NewPrinterConfig("Rongta-80"), buf)
	require.NoError(t, err)
	require.NoError(t, session.Close())

	select {
	case data := <-received:
		assert.Equal(t, buf.Bytes(), data)
	case <-time.After(2 * time.Second):
		t.Fatal("bridge did not receive the job")
	}
}

func TestTCPSessionUnknownPrinter(t *testing.T) {
	address, received := listen(t)
	client := quietClient(address, "Rongta-80")

	session, err := client.Connect(context.Background())
	require.NoError(t, err)

	err = session.Print(context.Background(), NewPrinterConfig("Other"), escpos.TestPage(""))
	assert.ErrorIs(t, err, ErrPrinterNotFound)
	require.NoError(t, session.Close())

	select {
	case data := <-received:
		assert.Empty(t, data)
	case <-time.After(2 * time.Second):
		t.Fatal("bridge connection was not closed")
	}
}

func TestTCPConnectRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	address := ln.Addr().String()
	ln.Close()

	client := quietClient(address, "Rongta-80")
	client.DialTimeout = 500 * time.Millisecond

	session, err := client.Connect(context.Background())
	assert.Error(t, err)
	assert.Nil(t, session)
	assert.Contains(t, err.Error(), address)
}

func TestTCPSessionClosed(t *testing.T) {
	address, _ := listen(t)
	client := quietClient(address, "Rongta-80")

	session, err := client.Connect(context.Background())
	require.NoError(t, err)
	require.NoError(t, session.Close())

	// second close is a no-op
	assert.NoError(t, session.Close())

	_, err = session.Printers(context.Background())
	assert.ErrorIs(t, err, ErrSessionClosed)

	err = session.Print(context.Background(), NewPrinterConfig("Rongta-80"), escpos.TestPage(""))
	assert.ErrorIs(t, err, ErrSessionClosed)
}

func TestTCPSessionCancelled(t *testing.T) {
	address, _ := listen(t)
	client := quietClient(address, "Rongta-80")

	session, err := client.Connect(context.Background())
	require.NoError(t, err)
	defer session.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = session.Print(ctx, NewPrinterConfig("Rongta-80"), escpos.TestPage(""))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTCPPrintersIsCopy(t *testing.T) {
	address, _ := listen(t)
	client := quietClient(address, "Rongta-80")

	session, err := client.Connect(context.Background())
	require.NoError(t, err)
	defer session.Close()

	printers, err := session.Printers(context.Background())
	require.NoError(t, err)
	printers[0] = "changed"

	again, err := session.Printers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Rongta-80"}, again)
}

func TestTCPSessionLogs(t *testing.T) {
	address, _ := listen(t)
	var out bytes.Buffer
	client := NewTCPClientWithLogger(address, log.New(&out, "", 0), "Rongta-80")

	session, err := client.Connect(context.Background())
	require.NoError(t, err)
	require.NoError(t, session.Print(context.Background(), NewPrinterConfig("Rongta-80"), escpos.TestPage("")))
	require.NoError(t, session.Close())

	assert.Contains(t, out.String(), "Connected to bridge")
	assert.Contains(t, out.String(), `Sent 20 bytes to "Rongta-80"`)
}
