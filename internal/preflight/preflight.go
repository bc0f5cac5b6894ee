// Package preflight validates the environment before a provisioning
// run so failures surface as one actionable report instead of half-way
// through setup.
package preflight

import (
	"errors"
	"fmt"
	"os"

	"github.com/dynapsys/dynadock/pkg/caddyfile"
	"github.com/dynapsys/dynadock/pkg/lan"
	"github.com/dynapsys/dynadock/pkg/netexec"
)

// Options select which checks apply to this run.
type Options struct {
	PortRangeStart int
	PortRangeEnd   int

	// LANMode adds the checks for virtual interface creation: root
	// privileges and the arping binary.
	LANMode bool

	// RequireProxy checks that the caddy binary is resolvable.
	RequireProxy bool

	// euid overrides the effective-uid lookup in tests.
	euid func() int
}

// Verify runs every applicable check and reports all failures joined
// together, not just the first one.
func Verify(runner netexec.Runner, opts Options) error {
	var errs []error

	if opts.PortRangeStart < 1 || opts.PortRangeEnd > 65535 {
		errs = append(errs, fmt.Errorf("port range %d-%d outside 1-65535",
			opts.PortRangeStart, opts.PortRangeEnd))
	} else if opts.PortRangeStart > opts.PortRangeEnd {
		errs = append(errs, fmt.Errorf("port range start %d greater than end %d",
			opts.PortRangeStart, opts.PortRangeEnd))
	}

	if opts.RequireProxy {
		// check the binary the reloader actually resolves, which may
		// have been overridden via DYNADOCK_CADDY_BIN
		bin := caddyfile.CaddyBin()
		if _, err := runner.LookPath(bin); err != nil {
			errs = append(errs, fmt.Errorf("%s not found (install caddy or pass --skip-reload): %w", bin, err))
		}
	}

	if opts.LANMode {
		bin := lan.ArpingBin()
		if _, err := runner.LookPath(bin); err != nil {
			errs = append(errs, fmt.Errorf("%s not found (arping is required for LAN mode): %w", bin, err))
		}

		euid := os.Geteuid
		if opts.euid != nil {
			euid = opts.euid
		}
		if euid() != 0 {
			errs = append(errs, errors.New("LAN mode requires root privileges, re-run with sudo"))
		}
	}

	return errors.Join(errs...)
}
