package server

import "errors"

var (
	// ErrNoDispatcher is returned when a Server is configured without a
	// Dispatcher.
	//
	// Every complete command line is handed to the dispatcher, so a server
	// cannot do anything useful without one.
	ErrNoDispatcher = errors.New("server: no dispatcher configured")

	// ErrNoRegistry is returned when a Server is configured without the
	// input registry connections must be removed from on teardown.
	ErrNoRegistry = errors.New("server: no input registry configured")

	// ErrInvalidConfig is returned for negative sizes or a receive buffer
	// too small to hold a single byte.
	ErrInvalidConfig = errors.New("server: invalid configuration")

	// ErrPoolExhausted is returned when every connection slot is taken.
	//
	// The new connection is closed right after accept; existing connections
	// are not affected.
	ErrPoolExhausted = errors.New("server: no free connection slot")

	// ErrServing is returned when Serve is called on a server that is
	// already accepting connections.
	ErrServing = errors.New("server: already serving")
)
