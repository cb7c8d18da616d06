package server

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"i4.energy/across/remoteio/dio"
	"i4.energy/across/remoteio/dispatch"
	"i4.energy/across/remoteio/hal"
	"i4.energy/across/remoteio/protocol"
	"i4.energy/across/remoteio/settings"
	"i4.energy/across/remoteio/uart"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type countingObserver struct {
	mu                                sync.Mutex
	opened, closed, rejected          int
	commands, failures, sent, dropped int
}

func (o *countingObserver) inc(p *int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	*p++
}

func (o *countingObserver) get(p *int) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return *p
}

func (o *countingObserver) ConnectionOpened() { o.inc(&o.opened) }
func (o *countingObserver) ConnectionClosed() { o.inc(&o.closed) }
func (o *countingObserver) ConnectionRejected() { o.inc(&o.rejected) }
func (o *countingObserver) NotificationSent() { o.inc(&o.sent) }
func (o *countingObserver) NotificationDropped() { o.inc(&o.dropped) }

func (o *countingObserver) CommandHandled(_ protocol.ServiceID, err error) {
	if err != nil {
		o.inc(&o.failures)
		return
	}
	o.inc(&o.commands)
}

type testEnv struct {
	addr     string
	ln       net.Listener
	bank     *hal.SimBank
	inputs   *dio.Inputs
	server   *Server
	observer *countingObserver
	cancel   context.CancelFunc
	served   chan error
}

func startServer(t *testing.T, tweak func(b *ConfigBuilder)) *testEnv {
	t.Helper()

	env := &testEnv{
		bank:     hal.NewSimBank(16, 16),
		observer: &countingObserver{},
		served:   make(chan error, 1),
	}
	env.inputs = dio.NewInputs(discardLogger(), env.bank, time.Millisecond)

	mgr, err := settings.Open(discardLogger(), &settings.MemStore{})
	require.NoError(t, err)

	d := &dispatch.Dispatcher{
		Logger:   discardLogger(),
		Firmware: "test",
		Inputs:   env.inputs,
		Outputs:  dio.NewOutputs(env.bank),
		Serial:   uart.NewSet(),
		LEDs:     hal.NewLEDStrip(io.Discard, 4),
		Settings: mgr,
	}

	b := NewConfigBuilder().
		WithDispatcher(d).
		WithRegistry(env.inputs).
		WithObserver(env.observer).
		WithLogger(discardLogger())
	if tweak != nil {
		tweak(b)
	}
	config, err := b.Build()
	require.NoError(t, err)
	env.server = New(config)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	env.addr = ln.Addr().String()
	env.ln = ln

	ctx, cancel := context.WithCancel(context.Background())
	env.cancel = cancel
	go env.inputs.Run(ctx)
	go func() { env.served <- env.server.Serve(ctx, ln) }()

	t.Cleanup(func() {
		cancel()
		select {
		case <-env.served:
		case <-time.After(5 * time.Second):
			t.Error("server did not stop")
		}
	})
	return env
}

type client struct {
	t    *testing.T
	conn net.Conn
	r    *bufio.Reader
}

func dial(t *testing.T, addr string) *client {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return &client{t: t, conn: conn, r: bufio.NewReader(conn)}
}

func (c *client) send(s string) {
	c.t.Helper()
	_, err := io.WriteString(c.conn, s)
	require.NoError(c.t, err)
}

func (c *client) line() string {
	c.t.Helper()
	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	s, err := c.r.ReadString('\n')
	require.NoError(c.t, err)
	return s
}

func TestServerRequestResponse(t *testing.T) {
	env := startServer(t, nil)
	c := dial(t, env.addr)

	c.send("R1\r\n")
	assert.Equal(t, "R1 OK\r\n", c.line())

	c.send("W4 99 1\r\nR1\r\n")
	assert.Equal(t, "E4\r\n", c.line())
	assert.Equal(t, "R1 OK\r\n", c.line())

	c.send("X\r\n")
	assert.Equal(t, "E1\r\n", c.line())
}

func TestServerFragmentedInput(t *testing.T) {
	env := startServer(t, nil)
	c := dial(t, env.addr)

	for _, part := range []string{"W", "4 ", "3", " 1", "\r", "\nR4", " 3\r\n"} {
		c.send(part)
		time.Sleep(5 * time.Millisecond)
	}
	assert.Equal(t, "W4 OK\r\n", c.line())
	assert.Equal(t, "R4 3 1\r\n", c.line())

	on, err := env.bank.Output(2)
	require.NoError(t, err)
	assert.True(t, on)
}

func TestServerBackpressure(t *testing.T) {
	env := startServer(t, func(b *ConfigBuilder) { b.WithRxBufferSize(8) })
	c := dial(t, env.addr)

	const n = 200
	c.send(strings.Repeat("R1\r\n", n))
	for i := range n {
		require.Equal(t, "R1 OK\r\n", c.line(), "response %d", i)
	}
}

func TestServerRawPayloadLargerThanBuffer(t *testing.T) {
	env := startServer(t, func(b *ConfigBuilder) { b.WithRxBufferSize(4) })
	c := dial(t, env.addr)

	// Channel 0 has no port, so the raw bytes are parsed and then rejected
	// by the dispatcher.
	c.send("W7 20 abcdefghij\r\nklmnopqr\r\nR1\r\n")
	assert.Equal(t, "E3\r\n", c.line())
	assert.Equal(t, "R1 OK\r\n", c.line())
}

func TestServerPoolExhausted(t *testing.T) {
	env := startServer(t, func(b *ConfigBuilder) { b.WithMaxClients(1) })

	first := dial(t, env.addr)
	first.send("R1\r\n")
	require.Equal(t, "R1 OK\r\n", first.line())

	second := dial(t, env.addr)
	require.NoError(t, second.conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, err := second.r.ReadByte()
	assert.ErrorIs(t, err, io.EOF)
	assert.Eventually(t, func() bool { return env.observer.get(&env.observer.rejected) == 1 },
		time.Second, time.Millisecond)

	first.conn.Close()
	assert.Eventually(t, func() bool { return env.server.Connections() == 0 }, time.Second, time.Millisecond)

	third := dial(t, env.addr)
	third.send("R1\r\n")
	assert.Equal(t, "R1 OK\r\n", third.line())
}

func TestServerNotificationsAndTeardown(t *testing.T) {
	env := startServer(t, nil)
	c := dial(t, env.addr)

	c.send("W5 1\r\n")
	require.Equal(t, "W5 OK\r\n", c.line())
	assert.Equal(t, dio.Polling, env.inputs.State())

	env.bank.SetInput(0, true)
	assert.Equal(t, "S5 1 1\r\n", c.line())
	env.bank.SetInput(0, false)
	assert.Equal(t, "S5 1 0\r\n", c.line())

	c.conn.Close()
	assert.Eventually(t, func() bool {
		return env.inputs.State() == dio.Idle && env.server.Connections() == 0
	}, time.Second, time.Millisecond)
	assert.Equal(t, 1, env.observer.get(&env.observer.closed))
}

func TestServerForwardSerial(t *testing.T) {
	env := startServer(t, nil)
	a := dial(t, env.addr)
	b := dial(t, env.addr)
	for _, c := range []*client{a, b} {
		c.send("R1\r\n")
		require.Equal(t, "R1 OK\r\n", c.line())
	}

	env.server.ForwardSerial(uart.Line{Channel: 1, Data: []byte("hello")})

	assert.Equal(t, "R7.1 hello\r\n", a.line())
	assert.Equal(t, "R7.1 hello\r\n", b.line())
}

func TestServerShutdown(t *testing.T) {
	env := startServer(t, nil)
	c := dial(t, env.addr)
	c.send("R1\r\n")
	require.Equal(t, "R1 OK\r\n", c.line())

	env.cancel()
	select {
	case err := <-env.served:
		assert.NoError(t, err)
		env.served <- err
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return")
	}

	require.NoError(t, c.conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, err := c.r.ReadByte()
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, 0, env.server.Connections())
}

func TestServerAcceptFailureClosesConnections(t *testing.T) {
	env := startServer(t, nil)
	c := dial(t, env.addr)
	c.send("W5 1\r\n")
	require.Equal(t, "W5 OK\r\n", c.line())

	require.NoError(t, env.ln.Close())
	select {
	case err := <-env.served:
		assert.ErrorIs(t, err, net.ErrClosed)
		env.served <- err
	case <-time.After(2 * time.Second):
		t.Fatalf("Serve did not return after accept failed; connections=%d", env.server.Connections())
	}

	require.NoError(t, c.conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, err := c.r.ReadByte()
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, 0, env.server.Connections())
	assert.Eventually(t, func() bool { return env.inputs.State() == dio.Idle }, time.Second, time.Millisecond)
}

func TestServerAnswersBeforeHalfClose(t *testing.T) {
	env := startServer(t, nil)

	for i := range 20 {
		c := dial(t, env.addr)
		c.send("R1\r\nW4 2 1\r\nR4 2\r\nR1")
		require.NoError(t, c.conn.(*net.TCPConn).CloseWrite())

		require.NoError(t, c.conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		out, err := io.ReadAll(c.r)
		require.NoError(t, err, "run %d", i)
		assert.Equal(t, "R1 OK\r\nW4 OK\r\nR4 2 1\r\n", string(out), "run %d", i)
	}
	assert.Eventually(t, func() bool { return env.server.Connections() == 0 }, time.Second, time.Millisecond)
}

func TestServeTwice(t *testing.T) {
	env := startServer(t, nil)
	c := dial(t, env.addr)
	c.send("R1\r\n")
	require.Equal(t, "R1 OK\r\n", c.line())

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	assert.ErrorIs(t, env.server.Serve(context.Background(), ln), ErrServing)
}
