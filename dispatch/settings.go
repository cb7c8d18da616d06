package dispatch

import (
	"errors"

	"i4.energy/across/remoteio/protocol"
	"i4.energy/across/remoteio/settings"
	"i4.energy/across/remoteio/uart"
)

// network handles the addressing settings and the LED chain length.
func (d *Dispatcher) network(c Client, cmd *protocol.CommandLine) error {
	if cmd.Direction == protocol.Read {
		rec := d.Settings.Snapshot()
		var values []int
		switch cmd.ServiceID {
		case protocol.ServiceIPAddress:
			values = octets(rec.IP[:])
		case protocol.ServiceNetmask:
			values = octets(rec.Netmask[:])
		case protocol.ServiceGateway:
			values = octets(rec.Gateway[:])
		case protocol.ServiceMACAddress:
			values = octets(rec.MAC[:])
		case protocol.ServiceTCPPort:
			values = []int{int(rec.TCPPort)}
		case protocol.ServiceLEDCount:
			values = []int{int(rec.LEDCount)}
		}
		c.Respond(response(cmd, values...))
		return nil
	}

	var (
		apply    func(*settings.Record)
		failCode protocol.Code
	)
	switch cmd.ServiceID {
	case protocol.ServiceIPAddress, protocol.ServiceNetmask, protocol.ServiceGateway, protocol.ServiceMACAddress:
		n := 4
		if cmd.ServiceID == protocol.ServiceMACAddress {
			n = 6
		}
		p, err := intParams(cmd, n)
		if err != nil {
			return err
		}
		b, err := bytesParam(p)
		if err != nil {
			return err
		}
		switch cmd.ServiceID {
		case protocol.ServiceIPAddress:
			apply, failCode = func(r *settings.Record) { copy(r.IP[:], b) }, protocol.CodeUpdateIPFailed
		case protocol.ServiceNetmask:
			apply, failCode = func(r *settings.Record) { copy(r.Netmask[:], b) }, protocol.CodeUpdateNetmaskFailed
		case protocol.ServiceGateway:
			apply, failCode = func(r *settings.Record) { copy(r.Gateway[:], b) }, protocol.CodeUpdateGatewayFailed
		default:
			apply, failCode = func(r *settings.Record) { copy(r.MAC[:], b) }, protocol.CodeUpdateMACFailed
		}

	case protocol.ServiceTCPPort:
		p, err := intParams(cmd, 1)
		if err != nil {
			return err
		}
		if p[0] < 1 || p[0] > 0xFFFF {
			return protocol.CodeInvalidCommandParameter
		}
		port := uint16(p[0])
		apply, failCode = func(r *settings.Record) { r.TCPPort = port }, protocol.CodeUpdateTCPPortFailed

	case protocol.ServiceLEDCount:
		p, err := intParams(cmd, 1)
		if err != nil {
			return err
		}
		if p[0] < 1 || p[0] > settings.MaxLEDs {
			return protocol.CodeInvalidCommandParameter
		}
		count := uint16(p[0])
		apply, failCode = func(r *settings.Record) { r.LEDCount = count }, protocol.CodeUpdateLEDCountFailed
	}

	rec, err := d.Settings.Update(func(r *settings.Record) error {
		apply(r)
		return nil
	})
	if err != nil {
		d.Logger.Warn("Settings update failed", "command", cmd.Header(), "error", err)
		return failCode
	}
	if cmd.ServiceID == protocol.ServiceLEDCount {
		d.LEDs.Resize(int(rec.LEDCount))
	}
	c.Respond(ok(cmd))
	return nil
}

// uartSetting handles the per-channel line settings. The variant selects
// the channel.
func (d *Dispatcher) uartSetting(c Client, cmd *protocol.CommandLine) error {
	ch := int(cmd.Variant)
	if ch >= settings.NumUARTs {
		return protocol.CodeInvalidCommandVariant
	}

	if cmd.Direction == protocol.Read {
		u := d.Settings.Snapshot().UART[ch]
		var v uint32
		switch cmd.ServiceID {
		case protocol.ServiceBaudRate:
			v = u.BaudRate
		case protocol.ServiceDataBits:
			v = uint32(u.DataBits)
		case protocol.ServiceParity:
			v = uint32(u.Parity)
		case protocol.ServiceStopBits:
			v = uint32(u.StopBits)
		case protocol.ServiceFlowControl:
			v = uint32(u.FlowControl)
		}
		c.Respond(response(cmd, v))
		return nil
	}

	p, err := intParams(cmd, 1)
	if err != nil {
		return err
	}
	v := p[0]

	var apply func(*settings.UART)
	switch cmd.ServiceID {
	case protocol.ServiceBaudRate:
		if v < 1 {
			return protocol.CodeInvalidCommandParameter
		}
		apply = func(u *settings.UART) { u.BaudRate = uint32(v) }
	case protocol.ServiceDataBits:
		if v < 5 || v > 8 {
			return protocol.CodeInvalidCommandParameter
		}
		apply = func(u *settings.UART) { u.DataBits = uint8(v) }
	case protocol.ServiceParity:
		if v < int32(settings.ParityNone) || v > int32(settings.ParitySpace) {
			return protocol.CodeInvalidCommandParameter
		}
		apply = func(u *settings.UART) { u.Parity = uint8(v) }
	case protocol.ServiceStopBits:
		if v < 1 || v > 2 {
			return protocol.CodeInvalidCommandParameter
		}
		apply = func(u *settings.UART) { u.StopBits = uint8(v) }
	case protocol.ServiceFlowControl:
		if v < int32(settings.FlowNone) || v > int32(settings.FlowRTSCTS) {
			return protocol.CodeInvalidCommandParameter
		}
		apply = func(u *settings.UART) { u.FlowControl = uint8(v) }
	}

	rec, err := d.Settings.Update(func(r *settings.Record) error {
		apply(&r.UART[ch])
		return nil
	})
	if err != nil {
		d.Logger.Warn("Settings update failed", "command", cmd.Header(), "error", err)
		return protocol.CodeUpdateUARTFailed
	}

	// The record is persisted; a port that cannot follow live picks the
	// change up on the next start.
	switch err := d.Serial.Configure(ch, rec.UART[ch]); {
	case err == nil:
	case errors.Is(err, uart.ErrNotConfigurable), errors.Is(err, uart.ErrInvalidChannel):
		d.Logger.Debug("UART change deferred to next start", "channel", ch, "reason", err)
	default:
		d.Logger.Warn("UART reconfiguration failed", "channel", ch, "error", err)
	}

	c.Respond(ok(cmd))
	return nil
}

func octets(b []byte) []int {
	out := make([]int, len(b))
	for i, v := range b {
		out[i] = int(v)
	}
	return out
}
