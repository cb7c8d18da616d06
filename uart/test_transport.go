package uart

import (
	"bytes"
	"context"
	"io"
	"sync"

	"go.bug.st/serial"
)

// TestTransport is a test helper that simulates a blocking serial port using
// channels. Reads block until data is queued with SendData (like a real
// serial port would), writes are captured and SetMode records the last mode.
type TestTransport struct {
	mu       sync.Mutex
	readChan chan []byte
	closed   bool
	written  bytes.Buffer
	mode     *serial.Mode
}

// NewTestTransport creates a new test transport for testing.
// Exported for use in tests of other packages.
func NewTestTransport() *TestTransport {
	return &TestTransport{
		readChan: make(chan []byte, 10),
	}
}

func (t *TestTransport) Write(p []byte) (n int, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return 0, io.ErrClosedPipe
	}
	return t.written.Write(p)
}

func (t *TestTransport) Read(p []byte) (n int, err error) {
	data, ok := <-t.readChan
	if !ok {
		return 0, io.EOF
	}
	return copy(p, data), nil
}

func (t *TestTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	close(t.readChan)
	return nil
}

func (t *TestTransport) SetMode(mode *serial.Mode) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.mode = mode
	return nil
}

// SendData queues data to be read by the transport.
// This simulates receiving data from the peripheral.
func (t *TestTransport) SendData(data string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.closed {
		t.readChan <- []byte(data)
	}
}

// Written returns everything written so far.
func (t *TestTransport) Written() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.written.String()
}

// Mode returns the last mode passed to SetMode.
func (t *TestTransport) Mode() *serial.Mode {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.mode
}

// StaticDialer hands out a prepared transport.
type StaticDialer struct {
	Transport Transport
}

func (d StaticDialer) Dial(ctx context.Context) (Transport, error) {
	return d.Transport, nil
}
