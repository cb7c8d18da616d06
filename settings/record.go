// Package settings holds the persisted board configuration: network
// addressing, the UART channels and the LED chain length.
//
// The record is stored as a fixed-size little-endian image followed by a
// one-byte rolling checksum (checksum = rotl(checksum, 1) + b over every
// byte of the image). A record whose checksum or version does not match is
// rejected and replaced by defaults.
package settings

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math/bits"
)

// Version is the layout version written into every record.
const Version = 2

// NumUARTs is the number of UART channels described by a record.
const NumUARTs = 2

// MaxLEDs bounds the LED chain length.
const MaxLEDs = 1024

// Parity values follow the numbering used by go.bug.st/serial.
const (
	ParityNone uint8 = iota
	ParityOdd
	ParityEven
	ParityMark
	ParitySpace
)

// Flow control modes.
const (
	FlowNone uint8 = iota
	FlowRTSCTS
)

// UART is the line configuration of one serial channel.
type UART struct {
	BaudRate    uint32 `json:"baud_rate" yaml:"baud_rate"`
	DataBits    uint8  `json:"data_bits" yaml:"data_bits"`
	StopBits    uint8  `json:"stop_bits" yaml:"stop_bits"`
	Parity      uint8  `json:"parity" yaml:"parity"`
	FlowControl uint8  `json:"flow_control" yaml:"flow_control"`
}

// Record is the persisted settings image.
type Record struct {
	Version  uint8          `json:"version"`
	IP       [4]byte        `json:"ip"`
	Netmask  [4]byte        `json:"netmask"`
	Gateway  [4]byte        `json:"gateway"`
	MAC      [6]byte        `json:"mac"`
	TCPPort  uint16         `json:"tcp_port"`
	UART     [NumUARTs]UART `json:"uart"`
	LEDCount uint16         `json:"led_count"`
}

// DefaultMAC is used until a board specific address is assigned.
var DefaultMAC = [6]byte{0x00, 0x05, 0x4F, 0x01, 0x02, 0x03}

// Defaults returns the factory record.
func Defaults() Record {
	return Record{
		Version: Version,
		IP:      [4]byte{192, 168, 1, 10},
		Netmask: [4]byte{255, 255, 255, 0},
		Gateway: [4]byte{192, 168, 0, 1},
		MAC:     DefaultMAC,
		TCPPort: 8500,
		UART: [NumUARTs]UART{
			{BaudRate: 115200, DataBits: 8, StopBits: 1, Parity: ParityNone, FlowControl: FlowNone},
			{BaudRate: 9600, DataBits: 8, StopBits: 1, Parity: ParityNone, FlowControl: FlowNone},
		},
		LEDCount: 25,
	}
}

// Size is the encoded length including the checksum byte.
var Size = binary.Size(Record{}) + 1

// Validate checks every field against its allowed range.
func (r *Record) Validate() error {
	if r.TCPPort == 0 {
		return fmt.Errorf("%w: tcp port 0", ErrInvalid)
	}
	for i, u := range r.UART {
		switch {
		case u.BaudRate == 0:
			return fmt.Errorf("%w: uart %d baud rate 0", ErrInvalid, i)
		case u.DataBits < 5 || u.DataBits > 8:
			return fmt.Errorf("%w: uart %d data bits %d", ErrInvalid, i, u.DataBits)
		case u.StopBits < 1 || u.StopBits > 2:
			return fmt.Errorf("%w: uart %d stop bits %d", ErrInvalid, i, u.StopBits)
		case u.Parity > ParitySpace:
			return fmt.Errorf("%w: uart %d parity %d", ErrInvalid, i, u.Parity)
		case u.FlowControl > FlowRTSCTS:
			return fmt.Errorf("%w: uart %d flow control %d", ErrInvalid, i, u.FlowControl)
		}
	}
	if r.LEDCount == 0 || r.LEDCount > MaxLEDs {
		return fmt.Errorf("%w: led count %d", ErrInvalid, r.LEDCount)
	}
	return nil
}

// Checksum folds p with a one-bit left rotation before each addition.
func Checksum(p []byte) byte {
	var c byte
	for _, b := range p {
		c = bits.RotateLeft8(c, 1) + b
	}
	return c
}

// Encode renders r followed by its checksum.
func Encode(r Record) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(Size)
	if err := binary.Write(&buf, binary.LittleEndian, r); err != nil {
		return nil, fmt.Errorf("encode settings: %w", err)
	}
	buf.WriteByte(Checksum(buf.Bytes()))
	return buf.Bytes(), nil
}

// Decode verifies and parses an image produced by Encode.
func Decode(p []byte) (Record, error) {
	var r Record
	if len(p) != Size {
		return r, fmt.Errorf("%w: got %d bytes, want %d", ErrSize, len(p), Size)
	}
	body, sum := p[:len(p)-1], p[len(p)-1]
	if Checksum(body) != sum {
		return r, ErrChecksum
	}
	if err := binary.Read(bytes.NewReader(body), binary.LittleEndian, &r); err != nil {
		return r, fmt.Errorf("decode settings: %w", err)
	}
	if r.Version != Version {
		return r, fmt.Errorf("%w: stored %d, want %d", ErrVersion, r.Version, Version)
	}
	return r, nil
}
