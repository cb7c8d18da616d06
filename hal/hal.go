// Package hal provides the hardware collaborators behind the I/O registries:
// an in-memory bank for development and tests, a Linux GPIO character device
// bank, and a WS28xx LED strip frame driver.
package hal

import "errors"

var (
	// ErrInvalidOffset is returned for a line offset outside the bank.
	ErrInvalidOffset = errors.New("hal: line offset out of range")

	// ErrUnsupported is returned when a backend is not available on the
	// running platform.
	ErrUnsupported = errors.New("hal: backend not supported on this platform")
)
