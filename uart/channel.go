// Package uart drives the board's serial channels: opening them, writing
// client payloads, applying line settings and forwarding received lines.
package uart

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"go.bug.st/serial"

	"i4.energy/across/remoteio/settings"
)

// Line is one line received on a channel, without its terminator.
type Line struct {
	Channel int
	Data    []byte
}

// Channel is one open UART. Writes may come from any goroutine; reads are
// owned by Loop.
type Channel struct {
	// transport provides the physical connection to the peripheral
	transport Transport
	// index is the channel number clients address with the variant
	index  int
	logger *slog.Logger

	// writeMu keeps payloads from different connections from interleaving
	writeMu sync.Mutex

	// mu guards closed and loopRunning
	mu          sync.Mutex
	closed      bool
	loopRunning bool

	// lines receives complete lines read by Loop
	lines chan Line
}

// New opens the channel described by config.
func New(ctx context.Context, config Config) (*Channel, error) {
	if config.dialer == nil {
		return nil, ErrNoDialer
	}
	config.setDefaults()

	transport, err := config.dialer.Dial(ctx)
	if err != nil {
		return nil, fmt.Errorf("open uart %d: %w", config.index, err)
	}
	if transport == nil {
		return nil, ErrNotInitialized
	}

	return &Channel{
		transport: transport,
		index:     config.index,
		logger:    config.logger.With("uart", config.index),
		lines:     make(chan Line, config.backlog),
	}, nil
}

// Index returns the channel number.
func (c *Channel) Index() int { return c.index }

// Write sends p in full.
func (c *Channel) Write(p []byte) error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return ErrAlreadyClosed
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	for len(p) > 0 {
		n, err := c.transport.Write(p)
		if err != nil {
			return fmt.Errorf("write uart %d: %w", c.index, err)
		}
		if n == 0 {
			return fmt.Errorf("write uart %d: %w", c.index, io.ErrShortWrite)
		}
		p = p[n:]
	}
	return nil
}

// Configure applies new line settings to the open port.
func (c *Channel) Configure(u settings.UART) error {
	cfg, ok := c.transport.(Configurable)
	if !ok {
		return ErrNotConfigurable
	}
	if u.FlowControl != settings.FlowNone {
		c.logger.Warn("Hardware flow control is not supported by the serial driver, ignoring")
	}
	if err := cfg.SetMode(ModeFor(u)); err != nil {
		return fmt.Errorf("configure uart %d: %w", c.index, err)
	}
	c.logger.Info("UART reconfigured", "baud_rate", u.BaudRate, "data_bits", u.DataBits,
		"parity", u.Parity, "stop_bits", u.StopBits)
	return nil
}

// Lines returns the channel receiving lines read by Loop. The channel is
// buffered; lines are dropped when nobody keeps up with it.
func (c *Channel) Lines() <-chan Line {
	return c.lines
}

// Loop reads the transport until ctx is cancelled or the transport fails,
// splitting the stream into lines and queueing them on Lines. It must run at
// most once at a time.
func (c *Channel) Loop(ctx context.Context) error {
	c.mu.Lock()
	if c.loopRunning {
		c.mu.Unlock()
		return ErrLoopRunning
	}
	c.loopRunning = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.loopRunning = false
		c.mu.Unlock()
	}()

	scanner := bufio.NewScanner(c.transport)
	scanner.Split(Splitter)

	tokens := make(chan []byte, 10)
	scanErrs := make(chan error, 1)

	go func() {
		defer close(tokens)
		for scanner.Scan() {
			if len(scanner.Bytes()) == 0 {
				continue
			}
			token := append([]byte(nil), scanner.Bytes()...)
			select {
			case tokens <- token:
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			select {
			case scanErrs <- err:
			case <-ctx.Done():
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case token, ok := <-tokens:
			if !ok {
				return io.EOF
			}
			select {
			case c.lines <- Line{Channel: c.index, Data: token}:
			default:
				c.logger.Debug("Receive backlog full, dropping line", "length", len(token))
			}

		case err := <-scanErrs:
			return fmt.Errorf("read uart %d: %w", c.index, err)
		}
	}
}

// Close releases the transport. Loop returns once its pending read fails.
func (c *Channel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrAlreadyClosed
	}
	c.closed = true
	return c.transport.Close()
}

// ModeFor converts persisted line settings into a serial mode.
func ModeFor(u settings.UART) *serial.Mode {
	stop := serial.OneStopBit
	if u.StopBits == 2 {
		stop = serial.TwoStopBits
	}
	return &serial.Mode{
		BaudRate: int(u.BaudRate),
		DataBits: int(u.DataBits),
		Parity:   serial.Parity(u.Parity),
		StopBits: stop,
	}
}
