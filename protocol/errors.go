package protocol

import "strconv"

// Code is a numeric error code reported to clients as "E<code>\r\n". Codes
// implement error so parse and dispatch failures travel as ordinary Go errors;
// use errors.As to recover the code.
type Code uint16

const (
	// CodeInvalidCommandType is reported when a line does not start with
	// R, W or a line terminator.
	CodeInvalidCommandType Code = 1
	// CodeInvalidCommandID is reported for a malformed service id.
	CodeInvalidCommandID Code = 2
	// CodeInvalidCommandVariant is reported for a malformed variant suffix.
	CodeInvalidCommandVariant Code = 3
	// CodeInvalidCommandParameter covers malformed parameters, wrong
	// parameter counts and out-of-range indices.
	CodeInvalidCommandParameter Code = 4
	// CodeTooManyDigits is reported when a numeric token exceeds the
	// maximum width or does not fit in 32 bits.
	CodeTooManyDigits Code = 5
	// CodeTokenAllocation is reported when a line carries more tokens than
	// the parser is willing to hold.
	CodeTokenAllocation Code = 6

	CodeSetLEDColorFailed    Code = 7
	CodeUpdateLEDFailed      Code = 8
	CodeUpdateIPFailed       Code = 9
	CodeUpdateNetmaskFailed  Code = 10
	CodeUpdateGatewayFailed  Code = 11
	CodeUpdateMACFailed      Code = 12
	CodeUpdateTCPPortFailed  Code = 13
	CodeUpdateUARTFailed     Code = 14
	CodeSerialWriteFailed    Code = 15
	CodeUpdateLEDCountFailed Code = 16
	CodeOutputWriteFailed    Code = 17
	CodeReadFailed           Code = 18
)

var codeNames = map[Code]string{
	CodeInvalidCommandType:      "invalid command type",
	CodeInvalidCommandID:        "invalid command id",
	CodeInvalidCommandVariant:   "invalid command variant",
	CodeInvalidCommandParameter: "invalid command parameter",
	CodeTooManyDigits:           "too many digits",
	CodeTokenAllocation:         "token allocation failed",
	CodeSetLEDColorFailed:       "set led color failed",
	CodeUpdateLEDFailed:         "update led failed",
	CodeUpdateIPFailed:          "update ip failed",
	CodeUpdateNetmaskFailed:     "update netmask failed",
	CodeUpdateGatewayFailed:     "update gateway failed",
	CodeUpdateMACFailed:         "update mac address failed",
	CodeUpdateTCPPortFailed:     "update tcp port failed",
	CodeUpdateUARTFailed:        "update uart failed",
	CodeSerialWriteFailed:       "serial write failed",
	CodeUpdateLEDCountFailed:    "update led count failed",
	CodeOutputWriteFailed:       "output write failed",
	CodeReadFailed:              "read failed",
}

func (c Code) Error() string {
	if name, ok := codeNames[c]; ok {
		return "protocol: " + name
	}
	return "protocol: error " + strconv.Itoa(int(c))
}

// Wire returns the "E<code>\r\n" frame for c.
func (c Code) Wire() string {
	return "E" + strconv.Itoa(int(c)) + CRLF
}
