package uart

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.bug.st/serial"
)

//go:generate go tool mockgen -destination=mock_transport.go -package=uart . Transport,Dialer

// Transport represents an established, bidirectional byte stream to a UART
// peripheral.
//
// A Transport is assumed to be already connected and ready for use. Typical
// implementations include serial ports, pseudo terminals, or in-memory fakes
// used for testing.
type Transport interface {
	io.ReadWriteCloser
}

// Configurable is implemented by transports whose line parameters can be
// changed while open. serial.Port satisfies it.
type Configurable interface {
	SetMode(mode *serial.Mode) error
}

// Dialer opens a Transport to a UART channel.
//
// Dialer abstracts how the channel is opened and is used while constructing
// a Channel only. Once a Transport is obtained, the Dialer is no longer
// needed.
type Dialer interface {
	// Dial creates and returns a connected Transport. It may block and
	// should respect cancellation provided by the context.
	Dial(ctx context.Context) (Transport, error)
}

// SerialDialer opens a UART channel on a local serial device using
// go.bug.st/serial.
type SerialDialer struct {
	// PortName is the device path, e.g. "/dev/ttyS1".
	PortName string
	// Mode is the initial line configuration. Nil selects 115200 8N1.
	Mode *serial.Mode
}

func (d SerialDialer) Dial(ctx context.Context) (Transport, error) {
	if d.PortName == "" {
		return nil, errors.New("uart: serial port name is required")
	}
	if ctx == nil {
		return nil, errors.New("uart: context is nil")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mode := d.Mode
	if mode == nil {
		mode = &serial.Mode{
			BaudRate: 115200,
			DataBits: 8,
			Parity:   serial.NoParity,
			StopBits: serial.OneStopBit,
		}
	}

	port, err := serial.Open(d.PortName, mode)
	if err != nil {
		return nil, fmt.Errorf("uart: open %s: %w", d.PortName, err)
	}
	return port, nil
}
