package bridge

import (
	"context"
	"io"
	"log"
	"testing"

	"github.com/nixxel-company-limited/escpos-dispatch/escpos"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUSBSession(t *testing.T) {
	client := NewUSBClientWithLogger(log.New(io.Discard, "", 0))

	session, err := client.Connect(context.Background())
	if err != nil {
		t.Skipf("libusb not available: %v", err)
	}

	printers, err := session.Printers(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, printers)

	err = session.Print(context.Background(), NewPrinterConfig("no such printer"), escpos.TestPage(""))
	assert.ErrorIs(t, err, ErrPrinterNotFound)

	require.NoError(t, session.Close())
	assert.NoError(t, session.Close())

	_, err = session.Printers(context.Background())
	assert.ErrorIs(t, err, ErrSessionClosed)
}

func TestUSBConnectCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewUSBClient().Connect(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
