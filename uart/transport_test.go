package uart

import (
	"context"
	"errors"
	"testing"

	"go.bug.st/serial"
	"go.uber.org/mock/gomock"
)

func TestSerialDialer_Dial_EmptyPortName(t *testing.T) {
	dialer := SerialDialer{
		PortName: "",
	}

	transport, err := dialer.Dial(context.Background())

	if err == nil {
		t.Fatal("expected error for empty port name")
	}
	if transport != nil {
		t.Error("expected nil transport for empty port name")
	}
	if err.Error() != "uart: serial port name is required" {
		t.Errorf("unexpected error message: %v", err)
	}
}

func TestSerialDialer_Dial_NilContext(t *testing.T) {
	dialer := SerialDialer{
		PortName: "/dev/ttyS1",
	}

	transport, err := dialer.Dial(nil)

	if err == nil {
		t.Fatal("expected error for nil context")
	}
	if transport != nil {
		t.Error("expected nil transport for nil context")
	}
	if err.Error() != "uart: context is nil" {
		t.Errorf("unexpected error message: %v", err)
	}
}

func TestSerialDialer_Dial_ContextCanceled(t *testing.T) {
	dialer := SerialDialer{
		PortName: "/dev/nonexistent",
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	transport, err := dialer.Dial(ctx)

	if err != context.Canceled {
		t.Errorf("expected context.Canceled, got: %v", err)
	}
	if transport != nil {
		t.Error("expected nil transport for canceled context")
	}
}

func TestSerialDialer_Dial_NonexistentPort(t *testing.T) {
	tests := []struct {
		name string
		mode *serial.Mode
	}{
		{name: "Default mode", mode: nil},
		{name: "Explicit mode", mode: &serial.Mode{BaudRate: 9600, DataBits: 7, Parity: serial.EvenParity, StopBits: serial.TwoStopBits}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dialer := SerialDialer{PortName: "/dev/nonexistent", Mode: tt.mode}

			transport, err := dialer.Dial(context.Background())
			if err == nil {
				t.Error("expected error for non-existent port")
			}
			if transport != nil {
				t.Error("expected nil transport for non-existent port")
			}
		})
	}
}

func TestDialerInterface_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockDialer := NewMockDialer(ctrl)
	dialError := errors.New("dial failed")

	ctx := context.Background()
	mockDialer.EXPECT().Dial(ctx).Return(nil, dialError)

	config, err := NewConfigBuilder().WithDialer(mockDialer).Build()
	if err != nil {
		t.Fatalf("unexpected error from Build(): %v", err)
	}

	c, err := New(ctx, config)
	if !errors.Is(err, dialError) {
		t.Errorf("expected dial error, got: %v", err)
	}
	if c != nil {
		t.Error("expected nil channel on error")
	}
}
