package ports

import (
	"fmt"
	"log/slog"
	"net"
	"sync"
)

// Allocator hands out free TCP ports from a bounded range.
//
// On construction it seeds an in-use set from the host's listening
// sockets; each allocation then walks candidates sequentially from the
// range start and bind-tests the first one not in the set. The walk is
// first-fit on purpose: it keeps port assignments predictable across
// runs for the same service ordering, and the mutex serializes
// allocation so two callers in one process can never be handed the
// same port.
type Allocator struct {
	mu    sync.Mutex
	start int
	end   int
	inUse map[int]struct{}

	logger *slog.Logger
}

// NewAllocator creates an allocator for the inclusive range [start, end].
// A range of size one is valid.
func NewAllocator(start, end int) (*Allocator, error) {
	if start < 1 || end > 65535 {
		return nil, fmt.Errorf("%w: ports must be within 1-65535, got %d-%d", ErrInvalidRange, start, end)
	}
	if start > end {
		return nil, fmt.Errorf("%w: start %d is greater than end %d", ErrInvalidRange, start, end)
	}

	a := &Allocator{
		start:  start,
		end:    end,
		inUse:  scanListeningPorts(),
		logger: slog.Default(),
	}

	a.logger.Debug("port allocator initialized",
		"start", start,
		"end", end,
		"host_listeners", len(a.inUse))

	return a, nil
}

// Allocate returns the lowest free port in the range and reserves it.
// Returns ErrNoFreePort when the range is exhausted.
func (a *Allocator) Allocate() (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for port := a.start; port <= a.end; port++ {
		if _, taken := a.inUse[port]; taken {
			continue
		}
		if !bindable(port) {
			// Taken by some process that was not in the scan.
			a.inUse[port] = struct{}{}
			continue
		}

		a.inUse[port] = struct{}{}
		return port, nil
	}

	return 0, fmt.Errorf("%w %d-%d", ErrNoFreePort, a.start, a.end)
}

// Release returns a port to the pool so it can be handed out again in
// the same run. Used for rollback after a partially failed batch.
func (a *Allocator) Release(port int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	delete(a.inUse, port)
}

// IsFree reports whether the port is currently neither reserved by this
// allocator nor bound on the host.
func (a *Allocator) IsFree(port int) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, taken := a.inUse[port]; taken {
		return false
	}
	return bindable(port)
}

// bindable confirms availability with the OS. The test listener is
// closed immediately so the real service can take the port; the narrow
// window between close and the service's own bind is accepted.
func bindable(port int) bool {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return false
	}
	_ = ln.Close()
	return true
}
