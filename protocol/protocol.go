// Package protocol implements the line-oriented ASCII command grammar spoken
// by remote I/O clients:
//
//	<R|W><service_id>[.<variant>][ <param>]*[ <len_param> <raw_bytes>]\r\n
//
// Responses are framed as "R<id>[.<variant>] <values...>\r\n" for reads,
// "<type><id>[.<variant>] OK\r\n" for successful writes and "E<code>\r\n" for
// errors. Input change notifications are pushed as "S5 <index> <state>\r\n".
package protocol

const (
	// Terminal control
	CR   = '\r'
	LF   = '\n'
	CRLF = "\r\n"

	// Response codes
	OK = "OK"
)

// ServiceID selects the peripheral or settings domain a command targets. The
// numbering is part of the wire contract.
type ServiceID uint16

const (
	ServiceStatus           ServiceID = 1
	ServiceSystemInfo       ServiceID = 2
	ServiceDigitalInput     ServiceID = 3
	ServiceDigitalOutput    ServiceID = 4
	ServiceSubscribeInput   ServiceID = 5
	ServiceUnsubscribeInput ServiceID = 6
	ServiceSerial           ServiceID = 7
	ServicePWMLED           ServiceID = 8

	ServiceIPAddress   ServiceID = 101
	ServiceTCPPort     ServiceID = 102
	ServiceNetmask     ServiceID = 103
	ServiceGateway     ServiceID = 104
	ServiceMACAddress  ServiceID = 105
	ServiceBaudRate    ServiceID = 106
	ServiceDataBits    ServiceID = 107
	ServiceParity      ServiceID = 108
	ServiceStopBits    ServiceID = 109
	ServiceFlowControl ServiceID = 110
	ServiceLEDCount    ServiceID = 111
)

// NeedsLength reports whether the first parameter of a command for id is a
// Length token announcing a raw byte payload.
func (id ServiceID) NeedsLength() bool {
	return id == ServiceSerial
}

// Direction is the leading letter of a command line.
type Direction byte

const (
	Read  Direction = 'R'
	Write Direction = 'W'
	// Notify prefixes asynchronous subscription notifications.
	Notify Direction = 'S'
)

func (d Direction) String() string { return string(rune(d)) }

// Kind distinguishes ordinary parameters from length prefixes.
type Kind int

const (
	KindParam  Kind = iota // Plain value
	KindLength             // Integer value is the byte count of the next token
)

// ValueType is the populated variant of a Token's value.
type ValueType int

const (
	TypeInt32 ValueType = iota
	TypeFloat
	TypeRaw
)

func (v ValueType) String() string {
	switch v {
	case TypeInt32:
		return "int32"
	case TypeFloat:
		return "float"
	case TypeRaw:
		return "raw"
	default:
		return "unknown"
	}
}
