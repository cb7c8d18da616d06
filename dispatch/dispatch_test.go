package dispatch

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"i4.energy/across/remoteio/dio"
	"i4.energy/across/remoteio/hal"
	"i4.energy/across/remoteio/protocol"
	"i4.energy/across/remoteio/settings"
	"i4.energy/across/remoteio/uart"
)

type fakeClient struct {
	mu  sync.Mutex
	out []string
	raw int
}

func (f *fakeClient) Respond(text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.out = append(f.out, text)
}

func (f *fakeClient) RespondBytes(p []byte) {
	f.mu.Lock()
	f.raw++
	f.mu.Unlock()
	f.Respond(string(p))
}

func (f *fakeClient) Notify(index int, state bool) { f.Respond(protocol.NotifyInput(index, state)) }

func (f *fakeClient) take() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.out
	f.out = nil
	return out
}

type harness struct {
	d        *Dispatcher
	bank     *hal.SimBank
	inputs   *dio.Inputs
	serial   *MockSerial
	leds     *hal.LEDStrip
	ledLink  *bytes.Buffer
	settings *settings.Manager
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctrl := gomock.NewController(t)

	h := &harness{
		bank:    hal.NewSimBank(16, 16),
		serial:  NewMockSerial(ctrl),
		ledLink: &bytes.Buffer{},
	}
	h.inputs = dio.NewInputs(discardLogger(), h.bank, time.Millisecond)
	h.leds = hal.NewLEDStrip(h.ledLink, 4)

	var err error
	h.settings, err = settings.Open(discardLogger(), &settings.MemStore{})
	require.NoError(t, err)

	h.d = &Dispatcher{
		Logger:   discardLogger(),
		Firmware: "test",
		Inputs:   h.inputs,
		Outputs:  dio.NewOutputs(h.bank),
		Serial:   h.serial,
		LEDs:     h.leds,
		Settings: h.settings,
	}
	return h
}

// run parses text the way a connection does and dispatches every complete
// line on behalf of c.
func (h *harness) run(c Client, text string) {
	p := protocol.NewParser()
	b := []byte(text)
	for len(b) > 0 {
		n, outcome, err := p.Feed(b)
		b = b[n:]
		switch outcome {
		case protocol.Complete:
			h.d.Dispatch(c, p.Command())
		case protocol.Failed:
			var code protocol.Code
			if errors.As(err, &code) {
				c.Respond(code.Wire())
			}
		}
	}
}

func TestDispatchResponses(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(h *harness)
		input    string
		expected []string
	}{
		{
			name:     "status",
			input:    "R1\r\n",
			expected: []string{"R1 OK\r\n"},
		},
		{
			name:     "status write rejected",
			input:    "W1\r\n",
			expected: []string{"E1\r\n"},
		},
		{
			name:  "read input",
			setup: func(h *harness) { h.bank.SetInput(2, true) },
			input: "R3 3\r\nR3 4\r\n",
			expected: []string{
				"R3 3 1\r\n",
				"R3 4 0\r\n",
			},
		},
		{
			name: "read all inputs",
			setup: func(h *harness) {
				h.bank.SetInput(0, true)
				h.bank.SetInput(15, true)
			},
			input:    "R3 -1\r\n",
			expected: []string{"R3 32769\r\n"},
		},
		{
			name:     "input index out of range",
			input:    "R3 17\r\nR3 0\r\n",
			expected: []string{"E4\r\n", "E4\r\n"},
		},
		{
			name:     "input write rejected",
			input:    "W3 1\r\n",
			expected: []string{"E1\r\n"},
		},
		{
			name:     "input without index",
			input:    "R3\r\n",
			expected: []string{"E4\r\n"},
		},
		{
			name:  "write and read output",
			input: "W4 2 1\r\nR4 2\r\nR4 -1\r\n",
			expected: []string{
				"W4 OK\r\n",
				"R4 2 1\r\n",
				"R4 2\r\n",
			},
		},
		{
			name:  "write multiple outputs",
			input: "W4.1 5 3 3\r\nR4 -1\r\n",
			expected: []string{
				"W4.1 OK\r\n",
				"R4 20\r\n",
			},
		},
		{
			name:     "write multiple out of range",
			input:    "W4.1 1 16 2\r\n",
			expected: []string{"E4\r\n"},
		},
		{
			name:     "output unknown variant",
			input:    "W4.2 1 1\r\n",
			expected: []string{"E3\r\n"},
		},
		{
			name:  "output index out of range keeps connection usable",
			input: "W4 99 1\r\nR1\r\n",
			expected: []string{
				"E4\r\n",
				"R1 OK\r\n",
			},
		},
		{
			name:  "subscribe and list",
			input: "R5\r\nW5 3 1 3\r\nR5\r\n",
			expected: []string{
				"R5\r\n",
				"W5 OK\r\n",
				"R5 1 3\r\n",
			},
		},
		{
			name:  "subscribe validates every index first",
			input: "W5 1 40\r\nR5\r\n",
			expected: []string{
				"E4\r\n",
				"R5\r\n",
			},
		},
		{
			name:  "unsubscribe",
			input: "W5 1 2\r\nW6 1\r\nR5\r\n",
			expected: []string{
				"W5 OK\r\n",
				"W6 OK\r\n",
				"R5 2\r\n",
			},
		},
		{
			name:     "unsubscribe read rejected",
			input:    "R6 1\r\n",
			expected: []string{"E1\r\n"},
		},
		{
			name:  "set and read led",
			input: "W8 1 255 16 0\r\nR8 1\r\n",
			expected: []string{
				"W8 OK\r\n",
				"R8 1 255 16 0\r\n",
			},
		},
		{
			name:     "led index out of range",
			input:    "W8 4 1 1 1\r\n",
			expected: []string{"E4\r\n"},
		},
		{
			name:     "led component out of range",
			input:    "W8 0 256 0 0\r\n",
			expected: []string{"E4\r\n"},
		},
		{
			name:     "serial read rejected",
			input:    "R7 1 A\r\n",
			expected: []string{"E1\r\n"},
		},
		{
			name:     "unknown service is echoed",
			input:    "W42.1 7 8\r\n",
			expected: []string{"W42.1 7 8\r\n"},
		},
		{
			name:     "parser failure",
			input:    "X1\r\nR1\r\n",
			expected: []string{"E1\r\n", "R1 OK\r\n"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			if tt.setup != nil {
				tt.setup(h)
			}
			c := &fakeClient{}
			h.run(c, tt.input)
			assert.Equal(t, tt.expected, c.take())
		})
	}
}

func TestDispatchSystemInfo(t *testing.T) {
	h := newHarness(t)
	h.serial.EXPECT().Count().Return(2)
	c := &fakeClient{}

	h.run(c, "R2\r\n")

	out := c.take()
	require.Len(t, out, 1)
	assert.Equal(t, 1, c.raw)
	assert.True(t, strings.HasPrefix(out[0], "Firmware: test\r\n"))
	assert.Contains(t, out[0], "  Digital Inputs: 16\r\n")
	assert.Contains(t, out[0], "  Digital Outputs: 16\r\n")
	assert.Contains(t, out[0], "  PWM WS28XX Channels: 4\r\n")
	assert.Contains(t, out[0], "  UART Channels: 2\r\n")
}

func TestDispatchSerial(t *testing.T) {
	t.Run("forwards raw payload", func(t *testing.T) {
		h := newHarness(t)
		h.serial.EXPECT().Count().Return(2)
		h.serial.EXPECT().Write(0, []byte("HELLO WORLD")).Return(nil)
		c := &fakeClient{}

		h.run(c, "W7.0 11 HELLO WORLD\r\n")
		assert.Equal(t, []string{"W7 OK\r\n"}, c.take())
	})

	t.Run("payload may contain terminators", func(t *testing.T) {
		h := newHarness(t)
		h.serial.EXPECT().Count().Return(2)
		h.serial.EXPECT().Write(1, []byte("a\r\nb")).Return(nil)
		c := &fakeClient{}

		h.run(c, "W7.1 4 a\r\nb\r\n")
		assert.Equal(t, []string{"W7.1 OK\r\n"}, c.take())
	})

	t.Run("unknown channel", func(t *testing.T) {
		h := newHarness(t)
		h.serial.EXPECT().Count().Return(2)
		c := &fakeClient{}

		h.run(c, "W7.2 1 x\r\n")
		assert.Equal(t, []string{"E3\r\n"}, c.take())
	})

	t.Run("write failure", func(t *testing.T) {
		h := newHarness(t)
		h.serial.EXPECT().Count().Return(2)
		h.serial.EXPECT().Write(0, []byte("x")).Return(errors.New("broken pipe"))
		c := &fakeClient{}

		h.run(c, "W7 1 x\r\n")
		assert.Equal(t, []string{"E15\r\n"}, c.take())
	})

	t.Run("channel without port", func(t *testing.T) {
		h := newHarness(t)
		h.serial.EXPECT().Count().Return(2)
		h.serial.EXPECT().Write(1, []byte("x")).Return(uart.ErrInvalidChannel)
		c := &fakeClient{}

		h.run(c, "W7.1 1 x\r\n")
		assert.Equal(t, []string{"E3\r\n"}, c.take())
	})
}

func TestDispatchLEDFailures(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(m *MockLEDStrip)
		expected string
	}{
		{
			name: "set color",
			setup: func(m *MockLEDStrip) {
				m.EXPECT().Count().Return(1)
				m.EXPECT().SetColor(0, hal.Color{R: 1, G: 2, B: 3}).Return(errors.New("boom"))
			},
			expected: "E7\r\n",
		},
		{
			name: "update",
			setup: func(m *MockLEDStrip) {
				m.EXPECT().Count().Return(1)
				m.EXPECT().SetColor(0, hal.Color{R: 1, G: 2, B: 3}).Return(nil)
				m.EXPECT().Update().Return(errors.New("boom"))
			},
			expected: "E8\r\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			leds := NewMockLEDStrip(gomock.NewController(t))
			tt.setup(leds)
			h.d.LEDs = leds
			c := &fakeClient{}

			h.run(c, "W8 0 1 2 3\r\n")
			assert.Equal(t, []string{tt.expected}, c.take())
		})
	}
}

func TestDispatchLEDFrame(t *testing.T) {
	h := newHarness(t)
	c := &fakeClient{}

	h.run(c, "W8 0 10 20 30\r\n")

	assert.Equal(t, []string{"W8 OK\r\n"}, c.take())
	assert.Equal(t, []byte{20, 10, 30, 0, 0, 0, 0, 0, 0, 0, 0, 0}, h.ledLink.Bytes())
}

func TestDispatchNotifications(t *testing.T) {
	h := newHarness(t)
	c := &fakeClient{}
	h.run(c, "W5 2\r\n")
	require.Equal(t, []string{"W5 OK\r\n"}, c.take())

	h.bank.SetInput(1, true)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	go h.inputs.Run(ctx)

	assert.Eventually(t, func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		return len(c.out) == 1 && c.out[0] == "S5 2 1\r\n"
	}, time.Second, time.Millisecond)
}
