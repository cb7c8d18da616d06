package bridge

import "errors"

var (
	// ErrNoBroker is returned by Connect when no broker URL is configured.
	ErrNoBroker = errors.New("bridge: no broker configured")

	// ErrInvalidInput is returned by Mirror for an index the registry does
	// not have.
	ErrInvalidInput = errors.New("bridge: invalid input index")

	// ErrConnectTimeout is returned when the broker does not acknowledge the
	// connection in time.
	ErrConnectTimeout = errors.New("bridge: connect timed out")
)
