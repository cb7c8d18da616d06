package uart

import (
	"bufio"
	"bytes"
)

// Splitter tokenizes data received from a UART peripheral into lines. It
// uses the signature of bufio.SplitFunc so it can be directly used with
// bufio.Scanner.
//
// Lines end at CR or LF; a CRLF pair therefore yields an empty token, which
// callers skip. A run of MaxLineLength bytes without a terminator is
// returned as a line of its own so a chatty device cannot stall forwarding.
//
// The atEOF parameter indicates whether any more data will be available.
// When true, any remaining data is returned as the final token.
func Splitter(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}

	if i := bytes.IndexAny(data, "\r\n"); i >= 0 && i <= MaxLineLength {
		return i + 1, data[:i], nil
	}

	if len(data) >= MaxLineLength {
		return MaxLineLength, data[:MaxLineLength], nil
	}

	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

var _ bufio.SplitFunc = Splitter
