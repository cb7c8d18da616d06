// Package dispatch executes parsed command lines against the board's
// peripherals and settings and formats the responses.
package dispatch

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"i4.energy/across/remoteio/dio"
	"i4.energy/across/remoteio/hal"
	"i4.energy/across/remoteio/protocol"
	"i4.energy/across/remoteio/uart"
)

// ReadAll is the index parameter that selects every input or output.
const ReadAll = -1

// Dispatcher maps a command's service id to an action. It holds no
// per-connection state and is shared by every connection.
type Dispatcher struct {
	Logger   *slog.Logger
	Firmware string
	Inputs   Inputs
	Outputs  Outputs
	Serial   Serial
	LEDs     LEDStrip
	Settings Settings
}

// Dispatch executes cmd on behalf of c. Every failure is reported to c as a
// single "E<code>" line and returned as a protocol.Code.
func (d *Dispatcher) Dispatch(c Client, cmd *protocol.CommandLine) error {
	err := d.execute(c, cmd)
	if err == nil {
		return nil
	}

	var code protocol.Code
	if !errors.As(err, &code) {
		code = protocol.CodeInvalidCommandParameter
	}
	d.Logger.Debug("Command failed", "command", cmd.Header(), "code", int(code), "error", err)
	c.Respond(code.Wire())
	return code
}

func (d *Dispatcher) execute(c Client, cmd *protocol.CommandLine) error {
	switch cmd.ServiceID {
	case protocol.ServiceStatus:
		if cmd.Direction != protocol.Read {
			return protocol.CodeInvalidCommandType
		}
		c.Respond(ok(cmd))
		return nil

	case protocol.ServiceSystemInfo:
		if cmd.Direction != protocol.Read {
			return protocol.CodeInvalidCommandType
		}
		c.RespondBytes(d.systemInfo())
		return nil

	case protocol.ServiceSerial:
		return d.serial(c, cmd)

	case protocol.ServiceDigitalInput:
		return d.input(c, cmd)

	case protocol.ServiceSubscribeInput:
		return d.subscribe(c, cmd)

	case protocol.ServiceUnsubscribeInput:
		return d.unsubscribe(c, cmd)

	case protocol.ServiceDigitalOutput:
		return d.output(c, cmd)

	case protocol.ServicePWMLED:
		return d.led(c, cmd)

	case protocol.ServiceIPAddress, protocol.ServiceNetmask, protocol.ServiceGateway,
		protocol.ServiceMACAddress, protocol.ServiceTCPPort, protocol.ServiceLEDCount:
		return d.network(c, cmd)

	case protocol.ServiceBaudRate, protocol.ServiceDataBits, protocol.ServiceParity,
		protocol.ServiceStopBits, protocol.ServiceFlowControl:
		return d.uartSetting(c, cmd)

	default:
		// Unknown ids are echoed back for troubleshooting.
		d.Logger.Debug("Unrecognized command", "command", cmd.String())
		c.Respond(cmd.String() + protocol.CRLF)
		return nil
	}
}

func (d *Dispatcher) systemInfo() []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "Firmware: %s\r\n", d.Firmware)
	b.WriteString("\r\n")
	b.WriteString("Commands:\r\n")
	b.WriteString("  Read: R<service_id>[.<variant>] <param1> <param2> ... <paramN>\r\n")
	b.WriteString("  Write: W<service_id>[.<variant>] <param1> <param2> ... <paramN>\r\n")
	b.WriteString("\r\n")
	b.WriteString("System Info:\r\n")
	fmt.Fprintf(&b, "  Digital Inputs: %d\r\n", d.Inputs.Count())
	fmt.Fprintf(&b, "  Digital Outputs: %d\r\n", d.Outputs.Count())
	fmt.Fprintf(&b, "  PWM WS28XX Channels: %d\r\n", d.LEDs.Count())
	fmt.Fprintf(&b, "  UART Channels: %d\r\n", d.Serial.Count())
	return b.Bytes()
}

func (d *Dispatcher) serial(c Client, cmd *protocol.CommandLine) error {
	if cmd.Direction != protocol.Write {
		return protocol.CodeInvalidCommandType
	}
	var payload []byte
	found := false
	for _, t := range cmd.Tokens {
		if t.Type == protocol.TypeRaw {
			payload, found = t.Raw, true
			break
		}
	}
	if !found {
		return protocol.CodeInvalidCommandParameter
	}
	ch := int(cmd.Variant)
	if ch >= d.Serial.Count() {
		return protocol.CodeInvalidCommandVariant
	}

	if err := d.Serial.Write(ch, payload); err != nil {
		if errors.Is(err, uart.ErrInvalidChannel) {
			return protocol.CodeInvalidCommandVariant
		}
		d.Logger.Warn("Serial write failed", "channel", ch, "error", err)
		return protocol.CodeSerialWriteFailed
	}
	c.Respond(ok(cmd))
	return nil
}

func (d *Dispatcher) input(c Client, cmd *protocol.CommandLine) error {
	if cmd.Direction != protocol.Read {
		return protocol.CodeInvalidCommandType
	}
	idx, err := intParams(cmd, 1)
	if err != nil {
		return err
	}
	index := int(idx[0])

	if index == ReadAll {
		mask, err := d.Inputs.ReadAll()
		if err != nil {
			d.Logger.Warn("Input read failed", "error", err)
			return protocol.CodeReadFailed
		}
		c.Respond(response(cmd, uint64(mask)))
		return nil
	}
	if !d.Inputs.Valid(index) {
		return protocol.CodeInvalidCommandParameter
	}
	on, err := d.Inputs.Read(index)
	if err != nil {
		d.Logger.Warn("Input read failed", "index", index, "error", err)
		return protocol.CodeReadFailed
	}
	c.Respond(response(cmd, index, btoi(on)))
	return nil
}

// indexParams requires at least one token, every one a valid input index.
func (d *Dispatcher) indexParams(cmd *protocol.CommandLine) ([]int, error) {
	if len(cmd.Tokens) == 0 {
		return nil, protocol.CodeInvalidCommandParameter
	}
	out := make([]int, 0, len(cmd.Tokens))
	for _, t := range cmd.Tokens {
		if t.Type != protocol.TypeInt32 || !d.Inputs.Valid(int(t.Int)) {
			return nil, protocol.CodeInvalidCommandParameter
		}
		out = append(out, int(t.Int))
	}
	return out, nil
}

func (d *Dispatcher) subscribe(c Client, cmd *protocol.CommandLine) error {
	switch cmd.Direction {
	case protocol.Read:
		var b strings.Builder
		b.WriteString(cmd.Header())
		var list strings.Builder
		if err := d.Inputs.PrintSubscribed(c, &list); err != nil {
			return err
		}
		if list.Len() > 0 {
			b.WriteByte(' ')
			b.WriteString(list.String())
		}
		b.WriteString(protocol.CRLF)
		c.Respond(b.String())
		return nil

	case protocol.Write:
		indices, err := d.indexParams(cmd)
		if err != nil {
			return err
		}
		for _, i := range indices {
			d.Inputs.Subscribe(c, i)
		}
		c.Respond(ok(cmd))
		return nil
	}
	return protocol.CodeInvalidCommandType
}

func (d *Dispatcher) unsubscribe(c Client, cmd *protocol.CommandLine) error {
	if cmd.Direction != protocol.Write {
		return protocol.CodeInvalidCommandType
	}
	indices, err := d.indexParams(cmd)
	if err != nil {
		return err
	}
	for _, i := range indices {
		d.Inputs.Unsubscribe(c, i)
	}
	c.Respond(ok(cmd))
	return nil
}

func (d *Dispatcher) output(c Client, cmd *protocol.CommandLine) error {
	if cmd.Direction == protocol.Read {
		idx, err := intParams(cmd, 1)
		if err != nil {
			return err
		}
		index := int(idx[0])
		if index == ReadAll {
			mask, err := d.Outputs.ReadAll()
			if err != nil {
				d.Logger.Warn("Output read failed", "error", err)
				return protocol.CodeReadFailed
			}
			c.Respond(response(cmd, uint64(mask)))
			return nil
		}
		on, err := d.Outputs.Read(index)
		if errors.Is(err, dio.ErrInvalidIndex) {
			return protocol.CodeInvalidCommandParameter
		} else if err != nil {
			d.Logger.Warn("Output read failed", "index", index, "error", err)
			return protocol.CodeReadFailed
		}
		c.Respond(response(cmd, index, btoi(on)))
		return nil
	}

	var err error
	switch cmd.Variant {
	case 0:
		var p []int32
		if p, err = intParams(cmd, 2); err != nil {
			return err
		}
		err = d.Outputs.Write(int(p[0]), p[1] > 0)
	case 1:
		var p []int32
		if p, err = intParams(cmd, 3); err != nil {
			return err
		}
		err = d.Outputs.WriteMultiple(uint32(p[0]), int(p[1]), int(p[2]))
	default:
		return protocol.CodeInvalidCommandVariant
	}
	if errors.Is(err, dio.ErrInvalidIndex) {
		return protocol.CodeInvalidCommandParameter
	} else if err != nil {
		d.Logger.Warn("Output write failed", "error", err)
		return protocol.CodeOutputWriteFailed
	}
	c.Respond(ok(cmd))
	return nil
}

func (d *Dispatcher) led(c Client, cmd *protocol.CommandLine) error {
	if cmd.Direction == protocol.Read {
		p, err := intParams(cmd, 1)
		if err != nil {
			return err
		}
		index := int(p[0])
		if index < 0 || index >= d.LEDs.Count() {
			return protocol.CodeInvalidCommandParameter
		}
		color, err := d.LEDs.Color(index)
		if err != nil {
			return protocol.CodeInvalidCommandParameter
		}
		c.Respond(response(cmd, index, int(color.R), int(color.G), int(color.B)))
		return nil
	}

	p, err := intParams(cmd, 4)
	if err != nil {
		return err
	}
	index := int(p[0])
	if index < 0 || index >= d.LEDs.Count() {
		return protocol.CodeInvalidCommandParameter
	}
	rgb, err := bytesParam(p[1:])
	if err != nil {
		return err
	}
	if err := d.LEDs.SetColor(index, hal.Color{R: rgb[0], G: rgb[1], B: rgb[2]}); err != nil {
		d.Logger.Warn("Set LED color failed", "index", index, "error", err)
		return protocol.CodeSetLEDColorFailed
	}
	if err := d.LEDs.Update(); err != nil {
		d.Logger.Warn("LED update failed", "error", err)
		return protocol.CodeUpdateLEDFailed
	}
	c.Respond(ok(cmd))
	return nil
}

// ok formats the acknowledgement echoing direction, id and variant.
func ok(cmd *protocol.CommandLine) string {
	return protocol.OKResponse(cmd.Direction, cmd.ServiceID, cmd.Variant)
}

// response formats "<header> <v1> <v2>...\r\n".
func response[T int | uint8 | uint16 | uint32 | uint64](cmd *protocol.CommandLine, values ...T) string {
	var b strings.Builder
	b.WriteString(cmd.Header())
	for _, v := range values {
		b.WriteByte(' ')
		b.WriteString(strconv.FormatUint(uint64(v), 10))
	}
	b.WriteString(protocol.CRLF)
	return b.String()
}

// intParams requires exactly n Int32 tokens.
func intParams(cmd *protocol.CommandLine, n int) ([]int32, error) {
	if len(cmd.Tokens) != n {
		return nil, protocol.CodeInvalidCommandParameter
	}
	out := make([]int32, n)
	for i, t := range cmd.Tokens {
		if t.Type != protocol.TypeInt32 {
			return nil, protocol.CodeInvalidCommandParameter
		}
		out[i] = t.Int
	}
	return out, nil
}

// bytesParam narrows values that must each fit in an octet.
func bytesParam(values []int32) ([]byte, error) {
	out := make([]byte, len(values))
	for i, v := range values {
		if v < 0 || v > 255 {
			return nil, protocol.CodeInvalidCommandParameter
		}
		out[i] = byte(v)
	}
	return out, nil
}

func btoi(b bool) int {
	if b {
		return 1
	}
	return 0
}
