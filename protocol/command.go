package protocol

import (
	"fmt"
	"strconv"
	"strings"
)

// Token is one lexical unit of a command's parameter list. Exactly one of
// Int, Float or Raw is meaningful, selected by Type.
type Token struct {
	Kind  Kind
	Type  ValueType
	Int   int32
	Float float32
	// Raw aliases parser-owned storage and is only valid until the parser
	// starts on the next command.
	Raw []byte
}

func (t Token) String() string {
	switch t.Type {
	case TypeFloat:
		return strconv.FormatFloat(float64(t.Float), 'f', -1, 32)
	case TypeRaw:
		return string(t.Raw)
	default:
		return strconv.FormatInt(int64(t.Int), 10)
	}
}

// CommandLine is one parsed request. A zero Variant means no variant was
// given; ".0" is normalized to absent.
type CommandLine struct {
	Direction Direction
	ServiceID ServiceID
	Variant   uint16
	Tokens    []Token
}

// Reset clears the command for reuse, keeping the token slice capacity.
func (c *CommandLine) Reset() {
	c.Direction = 0
	c.ServiceID = 0
	c.Variant = 0
	clear(c.Tokens)
	c.Tokens = c.Tokens[:0]
}

// Header renders "<type><id>[.<variant>]".
func (c *CommandLine) Header() string {
	return Header(c.Direction, c.ServiceID, c.Variant)
}

// String renders the command shape and every token value, space separated.
func (c *CommandLine) String() string {
	var b strings.Builder
	b.WriteString(c.Header())
	for _, t := range c.Tokens {
		b.WriteByte(' ')
		b.WriteString(t.String())
	}
	return b.String()
}

// Header renders a response or command prefix.
func Header(d Direction, id ServiceID, variant uint16) string {
	if variant != 0 {
		return fmt.Sprintf("%c%d.%d", d, id, variant)
	}
	return fmt.Sprintf("%c%d", d, id)
}

// OKResponse formats the acknowledgement for a successful command.
func OKResponse(d Direction, id ServiceID, variant uint16) string {
	return Header(d, id, variant) + " " + OK + CRLF
}

// NotifyInput formats an asynchronous input change notification.
func NotifyInput(index int, state bool) string {
	return fmt.Sprintf("%c%d %d %d%s", Notify, ServiceSubscribeInput, index, btoi(state), CRLF)
}

// SerialLine frames a line received on a UART channel. The channel is always
// spelled out, including channel 0.
func SerialLine(ch int, data []byte) []byte {
	b := make([]byte, 0, len(data)+16)
	b = fmt.Appendf(b, "%c%d.%d ", Read, ServiceSerial, ch)
	b = append(b, data...)
	return append(b, CRLF...)
}

func btoi(b bool) int {
	if b {
		return 1
	}
	return 0
}
