package uart

import "errors"

var (
	// ErrNoDialer is returned when a Channel is constructed without a Dialer.
	//
	// This indicates a configuration error. A Dialer is required in order to
	// open the serial device.
	ErrNoDialer = errors.New("uart: no dialer configured")

	// ErrNotInitialized is returned when an operation is attempted on a
	// Channel whose dialer produced no transport.
	ErrNotInitialized = errors.New("uart: channel not initialized")

	// ErrAlreadyClosed is returned when a Channel is used or closed after
	// Close.
	ErrAlreadyClosed = errors.New("uart: channel already closed")

	// ErrLoopRunning is returned when Loop is called while another Loop is
	// still reading the same channel.
	ErrLoopRunning = errors.New("uart: loop already running")

	// ErrInvalidChannel is returned for a channel number with no configured
	// port.
	ErrInvalidChannel = errors.New("uart: no such channel")

	// ErrNotConfigurable is returned when line parameters are changed on a
	// transport that cannot apply them while open.
	//
	// The new parameters are still persisted and take effect on the next
	// start.
	ErrNotConfigurable = errors.New("uart: transport does not support reconfiguration")
)
