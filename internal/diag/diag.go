// Package diag verifies reachability of provisioned endpoints with
// short TCP dials, for status reporting after a run.
package diag

import (
	"context"
	"fmt"
	"net"
	"sort"
	"time"

	"github.com/dynapsys/dynadock/pkg/state"
)

// DefaultTimeout bounds each connectivity probe.
const DefaultTimeout = 2 * time.Second

// Status is one service's reachability result.
type Status struct {
	Service   string
	Addr      string
	Reachable bool
	Err       error
}

// CheckAll dials every assigned endpoint and reports per-service
// reachability, sorted by service name for stable output. Services
// without a virtual address are checked on loopback.
func CheckAll(ctx context.Context, m state.Map, timeout time.Duration) []Status {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	dialer := &net.Dialer{Timeout: timeout}
	results := make([]Status, 0, len(names))

	for _, name := range names {
		a := m[name]
		host := "127.0.0.1"
		if a.IP != nil {
			host = *a.IP
		}
		addr := fmt.Sprintf("%s:%d", host, a.Port)

		conn, err := dialer.DialContext(ctx, "tcp", addr)
		status := Status{Service: name, Addr: addr, Reachable: err == nil, Err: err}
		if conn != nil {
			_ = conn.Close()
		}
		results = append(results, status)
	}

	return results
}
