// Package lan provisions LAN-visible virtual addresses: one macvlan
// device per service on the host's primary interface, each carrying a
// freshly probed address from the interface subnet, announced via
// gratuitous ARP.
package lan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"

	"github.com/dynapsys/dynadock/pkg/netexec"
	"github.com/dynapsys/dynadock/pkg/state"
)

// Allocator creates and removes the virtual interfaces for a run.
type Allocator struct {
	ops        linkOps
	runner     netexec.Runner
	logger     *slog.Logger
	probeLimit int
}

// NewAllocator returns an allocator operating on the real host via
// netlink. The runner executes ARP tooling (arping, ping).
func NewAllocator(runner netexec.Runner) *Allocator {
	return &Allocator{
		ops:        newNetlinkOps(),
		runner:     runner,
		logger:     slog.Default(),
		probeLimit: ProbeLimit,
	}
}

// Setup assigns one virtual address per service, in input order, and
// creates the backing macvlan devices. Any failure after some devices
// were created rolls back all of them before the error surfaces, so a
// failed setup never leaves partial network state behind.
func (a *Allocator) Setup(ctx context.Context, serviceNames []string) (map[string]AddressAssignment, error) {
	iface, err := a.detectInterface()
	if err != nil {
		return nil, err
	}

	subnet, err := a.ops.InterfaceAddr(iface)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoInterface, err)
	}

	a.logger.Info("detected primary interface",
		"interface", iface,
		"subnet", subnet.String())

	addrs, err := a.nextAddrs(ctx, subnet, len(serviceNames))
	if err != nil {
		return nil, err
	}

	ones, _ := subnet.Mask.Size()

	// Visibility aids, not preconditions.
	if err := enableIPForwarding(); err != nil {
		a.logger.Warn("could not enable IP forwarding", "error", err)
	}
	if err := enableProxyARP(iface); err != nil {
		a.logger.Warn("could not enable proxy ARP", "error", err)
	}

	assignments := make(map[string]AddressAssignment, len(serviceNames))
	var created []string

	rollback := func() {
		for _, name := range created {
			if _, err := a.ops.DeleteLink(name); err != nil {
				a.logger.Warn("rollback: could not remove link", "link", name, "error", err)
			}
		}
	}

	for i, svc := range serviceNames {
		name := linkName(i)
		addr := &net.IPNet{IP: addrs[i], Mask: net.CIDRMask(ones, 32)}

		if err := a.createLink(name, iface, addr); err != nil {
			rollback()
			return nil, fmt.Errorf("service %s: %w", svc, err)
		}
		created = append(created, name)

		a.pinNeighbor(name, addrs[i])
		a.announce(ctx, name, addrs[i].String())

		assignments[svc] = AddressAssignment{
			ServiceName: svc,
			IP:          addrs[i].String(),
			LinkName:    name,
		}

		a.logger.Info("virtual address assigned",
			"service", svc,
			"ip", addrs[i].String(),
			"link", name)
	}

	return assignments, nil
}

// createLink creates one macvlan device. A leftover device with the
// same name (crashed prior run) is removed first so the state is known
// clean. An unexpected create failure is retried once after forcing the
// name free again.
func (a *Allocator) createLink(name, parent string, addr *net.IPNet) error {
	if a.ops.LinkExists(name) {
		a.logger.Warn("stale link found, recreating", "link", name)
		if _, err := a.ops.DeleteLink(name); err != nil {
			return a.wrapCreate(name, err)
		}
	}

	err := a.ops.CreateMacvlan(name, parent, addr)
	if err == nil {
		return nil
	}
	if errors.Is(err, os.ErrPermission) {
		return fmt.Errorf("%w: creating %s", ErrNeedRoot, name)
	}

	// transient failure: force the name free and try once more
	a.logger.Warn("link creation failed, retrying once", "link", name, "error", err)
	if _, derr := a.ops.DeleteLink(name); derr != nil {
		return a.wrapCreate(name, derr)
	}
	if err := a.ops.CreateMacvlan(name, parent, addr); err != nil {
		return a.wrapCreate(name, err)
	}

	return nil
}

// pinNeighbor locks the address's MAC into the host neighbor table so
// local clients skip the initial ARP resolution. The pinned entry is
// removed with its link. Best effort.
func (a *Allocator) pinNeighbor(name string, ip net.IP) {
	mac, err := a.ops.LinkMAC(name)
	if err != nil {
		a.logger.Warn("could not read link MAC, skipping neighbor pin", "link", name, "error", err)
		return
	}
	if err := a.ops.PinNeighbor(name, ip, mac); err != nil {
		a.logger.Warn("could not pin neighbor entry", "link", name, "ip", ip.String(), "error", err)
	}
}

func (a *Allocator) wrapCreate(name string, err error) error {
	if errors.Is(err, os.ErrPermission) {
		return fmt.Errorf("%w: creating %s", ErrNeedRoot, name)
	}
	return fmt.Errorf("%w: %s: %v", ErrLinkCreateFailed, name, err)
}

// detectInterface finds the interface carrying the default route,
// falling back to a fixed list of conventional names.
func (a *Allocator) detectInterface() (string, error) {
	iface, err := a.ops.DefaultRouteInterface()
	if err == nil {
		a.logger.Debug("interface from default route", "interface", iface)
		return iface, nil
	}

	a.logger.Warn("default route lookup failed, trying fallbacks", "error", err)
	for _, name := range fallbackInterfaces {
		if a.ops.LinkExists(name) {
			a.logger.Info("using fallback interface", "interface", name)
			return name, nil
		}
	}

	return "", ErrNoInterface
}

// Teardown removes the virtual interfaces recorded in the persisted
// map. It never enumerates live links: the map alone decides what is
// ours. A link that is already gone counts as success, so teardown can
// run twice or after a partial external cleanup.
func (a *Allocator) Teardown(ctx context.Context, m state.Map) error {
	var errs []error

	for svc, assignment := range m {
		if assignment.Interface == nil {
			continue
		}

		found, err := a.ops.DeleteLink(*assignment.Interface)
		switch {
		case err != nil:
			if errors.Is(err, os.ErrPermission) {
				err = fmt.Errorf("%w: removing %s", ErrNeedRoot, *assignment.Interface)
			} else {
				err = fmt.Errorf("%w: %s: %v", ErrLinkRemoveFailed, *assignment.Interface, err)
			}
			errs = append(errs, err)
		case !found:
			a.logger.Debug("link already gone", "service", svc, "link", *assignment.Interface)
		default:
			a.logger.Info("virtual interface removed",
				"service", svc,
				"link", *assignment.Interface)
		}
	}

	return errors.Join(errs...)
}
