package dio

import "errors"

var (
	// ErrInvalidIndex is returned when an output index or range falls
	// outside the configured lines.
	//
	// Input indices are validated by callers; the registry panics on an
	// invalid direct read and silently ignores invalid subscriptions.
	ErrInvalidIndex = errors.New("dio: index out of range")

	// ErrRunning is returned when Run is called while the poller is
	// already running.
	ErrRunning = errors.New("dio: poller already running")
)
