package ports

import "errors"

var (
	// ErrNoFreePort means the configured range was walked end to end
	// without finding a bindable port.
	ErrNoFreePort = errors.New("no free ports available in range")

	// ErrInvalidRange means the requested port range is malformed.
	ErrInvalidRange = errors.New("invalid port range")
)
