// Package server accepts client connections and gives each one its own
// receive buffer, parser and worker.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"i4.energy/across/remoteio/protocol"
	"i4.energy/across/remoteio/uart"
)

// Server is the command server. It owns a fixed pool of connection slots;
// connections beyond the pool size are refused.
type Server struct {
	config  Config
	logger  *slog.Logger
	pool    *pool
	serving atomic.Bool
	wg      sync.WaitGroup
}

func New(config Config) *Server {
	return &Server{
		config: config,
		logger: config.logger,
		pool:   newPool(config.maxClients),
	}
}

// ListenAndServe listens on the TCP address addr and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled or accepting
// fails. ln is closed and every connection has been torn down when Serve
// returns.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	if !s.serving.CompareAndSwap(false, true) {
		return ErrServing
	}
	defer s.serving.Store(false)

	// Connections are cancelled before waiting for them, however Serve exits.
	ctx, cancel := context.WithCancel(ctx)
	defer s.wg.Wait()
	defer cancel()

	stop := context.AfterFunc(ctx, func() { ln.Close() })
	defer stop()

	s.logger.Info("Accepting connections", "address", ln.Addr().String(), "max_clients", s.config.maxClients)
	for {
		nc, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			ln.Close()
			return fmt.Errorf("accept: %w", err)
		}

		c, err := s.pool.allocate(func(slot int) *Conn {
			return newConn(&s.config, slot, uuid.NewString(), nc)
		})
		if err != nil {
			s.logger.Warn("Connection refused", "remote", nc.RemoteAddr().String(), "error", err)
			s.config.observer.ConnectionRejected()
			nc.Close()
			continue
		}

		s.wg.Add(1)
		go s.handle(ctx, c)
	}
}

// handle runs one connection and tears it down: the worker is stopped, the
// connection leaves every input subscription, its buffers are released and
// the slot returns to the pool.
func (s *Server) handle(ctx context.Context, c *Conn) {
	defer s.wg.Done()

	s.config.observer.ConnectionOpened()
	c.logger.Info("Client connected", "slot", c.slot)

	err := c.serve(ctx)

	c.state.Store(int32(Closing))
	s.config.registry.UnsubscribeAll(c)
	c.release()
	s.pool.release(c)
	s.config.observer.ConnectionClosed()

	switch {
	case err == nil, errors.Is(err, io.EOF):
		c.logger.Info("Client disconnected")
	default:
		c.logger.Warn("Client connection failed", "error", err)
	}
}

// Connections returns the number of occupied slots.
func (s *Server) Connections() int {
	return s.pool.inUse()
}

// Broadcast queues p on every active connection without blocking and
// returns how many connections accepted it.
func (s *Server) Broadcast(p []byte) int {
	n := 0
	for _, c := range s.pool.active() {
		if c.offer(p) {
			n++
		} else {
			c.logger.Warn("Broadcast dropped", "bytes", len(p))
		}
	}
	return n
}

// ForwardSerial broadcasts a line received on a UART channel.
func (s *Server) ForwardSerial(l uart.Line) {
	s.Broadcast(protocol.SerialLine(l.Channel, l.Data))
}
