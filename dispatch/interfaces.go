package dispatch

import (
	"io"

	"i4.energy/across/remoteio/dio"
	"i4.energy/across/remoteio/hal"
	"i4.energy/across/remoteio/settings"
)

//go:generate go tool mockgen -destination=mock_collaborators.go -package=dispatch . Serial,LEDStrip

// Responder is the output path of one connection.
type Responder interface {
	// Respond sends a complete response line.
	Respond(text string)
	// RespondBytes sends raw bytes.
	RespondBytes(p []byte)
}

// Client is a connection as seen by the dispatcher: it receives responses
// and is the identity used for input subscriptions.
type Client interface {
	Responder
	dio.Subscriber
}

// Inputs is the digital input registry.
type Inputs interface {
	Count() int
	Valid(index int) bool
	Read(index int) (bool, error)
	ReadAll() (uint32, error)
	Subscribe(sub dio.Subscriber, index int)
	Unsubscribe(sub dio.Subscriber, index int)
	PrintSubscribed(sub dio.Subscriber, w io.Writer) error
}

// Outputs is the digital output collection.
type Outputs interface {
	Count() int
	Valid(index int) bool
	Read(index int) (bool, error)
	ReadAll() (uint32, error)
	Write(index int, state bool) error
	WriteMultiple(data uint32, start, length int) error
}

// Serial is the set of UART channels.
type Serial interface {
	Count() int
	Write(ch int, p []byte) error
	Configure(ch int, u settings.UART) error
}

// LEDStrip is the WS28xx chain.
type LEDStrip interface {
	Count() int
	SetColor(index int, c hal.Color) error
	Color(index int) (hal.Color, error)
	Update() error
	Resize(count int)
}

// Settings is the persisted configuration record.
type Settings interface {
	Snapshot() settings.Record
	Update(fn func(*settings.Record) error) (settings.Record, error)
}

var (
	_ Inputs   = (*dio.Inputs)(nil)
	_ Outputs  = (*dio.Outputs)(nil)
	_ LEDStrip = (*hal.LEDStrip)(nil)
	_ Settings = (*settings.Manager)(nil)
)
