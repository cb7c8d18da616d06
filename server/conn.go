package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"i4.energy/across/remoteio/protocol"
	"i4.energy/across/remoteio/ring"
)

const readChunk = 512

// Conn is the service context of one accepted connection. Bytes from the
// socket are produced into a ring buffer by a reader goroutine and consumed
// by a worker goroutine that parses and dispatches them. Everything sent to
// the client goes through a queue drained by a writer goroutine, so
// responses and notifications never interleave mid-line.
type Conn struct {
	id     string
	slot   int
	nc     net.Conn
	logger *slog.Logger
	config *Config

	rx     *ring.Buffer
	parser *protocol.Parser

	// readable is raised by the reader after producing bytes, writable by
	// the worker after consuming them. Both hold at most one pending signal.
	readable chan struct{}
	writable chan struct{}

	outbox chan []byte
	done   chan struct{}

	// eof is closed by the reader when the peer stops sending, drained by
	// the worker once every buffered command has been handled.
	eof     chan struct{}
	drained chan struct{}

	state     atomic.Int32
	closeOnce sync.Once
}

func newConn(config *Config, slot int, id string, nc net.Conn) *Conn {
	return &Conn{
		id:       id,
		slot:     slot,
		nc:       nc,
		config:   config,
		logger:   config.logger.With("conn", id, "remote", nc.RemoteAddr().String()),
		rx:       ring.New(config.rxBufferSize),
		parser:   protocol.NewParser(config.parserOpts...),
		readable: make(chan struct{}, 1),
		writable: make(chan struct{}, 1),
		outbox:   make(chan []byte, config.outboxSize),
		done:     make(chan struct{}),
		eof:      make(chan struct{}),
		drained:  make(chan struct{}),
	}
}

// ID returns the connection identifier used in logs.
func (c *Conn) ID() string { return c.id }

func (c *Conn) RemoteAddr() net.Addr { return c.nc.RemoteAddr() }

func (c *Conn) State() State { return State(c.state.Load()) }

func (c *Conn) String() string { return c.id }

// Respond queues a response line, waiting while the queue is full. It
// returns without sending once the connection is shutting down.
func (c *Conn) Respond(text string) {
	c.enqueue([]byte(text))
}

// RespondBytes queues a copy of p.
func (c *Conn) RespondBytes(p []byte) {
	c.enqueue(bytes.Clone(p))
}

// Notify queues an input change notification without blocking. When the
// client is not keeping up the notification is dropped.
func (c *Conn) Notify(index int, state bool) {
	if c.offer([]byte(protocol.NotifyInput(index, state))) {
		c.config.observer.NotificationSent()
		return
	}
	c.config.observer.NotificationDropped()
	c.logger.Warn("Notification dropped", "index", index, "state", state)
}

func (c *Conn) enqueue(p []byte) {
	select {
	case c.outbox <- p:
	case <-c.done:
	}
}

// offer queues p if there is room right now.
func (c *Conn) offer(p []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.outbox <- p:
		return true
	default:
		return false
	}
}

// serve runs the reader, worker and writer until one of them fails or ctx
// is cancelled. When the peer half-closes, commands already received are
// still answered and serve returns io.EOF after the last response is
// written. The socket is closed before serve returns.
func (c *Conn) serve(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	stop := context.AfterFunc(ctx, c.shutdown)
	defer stop()

	c.state.Store(int32(Active))
	g.Go(func() error { return c.readLoop(ctx) })
	g.Go(func() error { return c.workLoop(ctx) })
	g.Go(func() error { return c.writeLoop(ctx) })

	err := g.Wait()
	c.shutdown()
	return err
}

func (c *Conn) shutdown() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.nc.Close()
	})
}

// readLoop is the single producer of the receive ring.
func (c *Conn) readLoop(ctx context.Context) error {
	buf := make([]byte, readChunk)
	for {
		n, err := c.nc.Read(buf)
		if n > 0 {
			if perr := c.produce(ctx, buf[:n]); perr != nil {
				return nil
			}
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, io.EOF) {
				close(c.eof)
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
	}
}

// produce moves p into the ring, waiting for the worker to make room when
// the ring is full.
func (c *Conn) produce(ctx context.Context, p []byte) error {
	for len(p) > 0 {
		n := min(len(p), c.rx.Free())
		if n == 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-c.writable:
			}
			continue
		}
		if err := c.rx.Append(p[:n]); err != nil {
			return err
		}
		p = p[n:]
		raise(c.readable)
	}
	return nil
}

// workLoop is the single consumer of the receive ring.
func (c *Conn) workLoop(ctx context.Context) error {
	for ctx.Err() == nil {
		outcome, err := c.parser.Parse(c.rx)
		raise(c.writable)

		switch outcome {
		case protocol.Complete:
			cmd := c.parser.Command()
			derr := c.config.dispatcher.Dispatch(c, cmd)
			c.config.observer.CommandHandled(cmd.ServiceID, derr)

		case protocol.Failed:
			var code protocol.Code
			if !errors.As(err, &code) {
				code = protocol.CodeInvalidCommandParameter
			}
			c.logger.Debug("Command rejected", "code", int(code))
			c.Respond(code.Wire())
			c.config.observer.CommandHandled(0, code)

		default:
			if c.finished() {
				close(c.drained)
				return nil
			}
			select {
			case <-ctx.Done():
			case <-c.readable:
			case <-c.eof:
			}
		}
	}
	return nil
}

// finished reports whether the peer has stopped sending and every received
// byte has been parsed. A trailing partial line is dropped.
func (c *Conn) finished() bool {
	select {
	case <-c.eof:
		return c.rx.IsEmpty()
	default:
		return false
	}
}

// writeLoop is the only writer of the socket. Once the worker has drained
// a half-closed connection, whatever is still queued is flushed and the
// connection ends with io.EOF.
func (c *Conn) writeLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case p := <-c.outbox:
			if err := c.write(ctx, p); err != nil {
				return err
			}
		case <-c.drained:
			for {
				select {
				case p := <-c.outbox:
					if err := c.write(ctx, p); err != nil {
						return err
					}
				default:
					return io.EOF
				}
			}
		}
	}
}

func (c *Conn) write(ctx context.Context, p []byte) error {
	if c.config.writeTimeout > 0 {
		c.nc.SetWriteDeadline(time.Now().Add(c.config.writeTimeout))
	}
	if _, err := c.nc.Write(p); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

// release drops any partially parsed line and buffered bytes.
func (c *Conn) release() {
	c.parser.Reset()
	c.rx.Reset()
}

func raise(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
