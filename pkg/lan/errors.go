package lan

import "errors"

var (
	// Interface detection errors
	ErrNoInterface = errors.New("no suitable network interface found")

	// Address selection errors
	ErrRangeExhausted = errors.New("no free addresses available in subnet")

	// Link errors
	ErrLinkCreateFailed = errors.New("failed to create virtual interface")
	ErrLinkRemoveFailed = errors.New("failed to remove virtual interface")

	// Permission errors
	ErrNeedRoot = errors.New("operation requires root privileges")
)
