package lan

import (
	"fmt"
	"net"

	"github.com/vishvananda/netlink"
)

// linkOps abstracts the netlink operations the allocator performs, so
// unit tests can record intended calls without touching the host.
type linkOps interface {
	// DefaultRouteInterface returns the name of the interface carrying
	// the IPv4 default route.
	DefaultRouteInterface() (string, error)

	// LinkExists reports whether a link with the given name exists.
	LinkExists(name string) bool

	// InterfaceAddr returns the primary IPv4 address and subnet of the
	// named interface.
	InterfaceAddr(name string) (*net.IPNet, error)

	// LinkMAC returns the hardware address of the named link.
	LinkMAC(name string) (net.HardwareAddr, error)

	// CreateMacvlan creates a macvlan device in bridge mode on top of
	// parent, assigns addr to it and brings it up.
	CreateMacvlan(name, parent string, addr *net.IPNet) error

	// DeleteLink removes the named link. found is false when no such
	// link existed, which callers treat as success.
	DeleteLink(name string) (found bool, err error)

	// PinNeighbor writes a permanent neighbor entry for ip with the
	// given hardware address on the named link, so host-local traffic
	// resolves it without an ARP round trip. The entry dies with the
	// link.
	PinNeighbor(name string, ip net.IP, mac net.HardwareAddr) error
}

// netlinkOps is the real implementation backed by vishvananda/netlink.
type netlinkOps struct{}

func newNetlinkOps() *netlinkOps {
	return &netlinkOps{}
}

func (o *netlinkOps) DefaultRouteInterface() (string, error) {
	routes, err := netlink.RouteList(nil, netlink.FAMILY_V4)
	if err != nil {
		return "", fmt.Errorf("list routes: %w", err)
	}

	for _, route := range routes {
		if route.Dst != nil {
			continue
		}
		link, err := netlink.LinkByIndex(route.LinkIndex)
		if err != nil {
			continue
		}
		return link.Attrs().Name, nil
	}

	return "", fmt.Errorf("no default route in table")
}

func (o *netlinkOps) LinkExists(name string) bool {
	_, err := netlink.LinkByName(name)
	return err == nil
}

func (o *netlinkOps) InterfaceAddr(name string) (*net.IPNet, error) {
	link, err := netlink.LinkByName(name)
	if err != nil {
		return nil, fmt.Errorf("link %s: %w", name, err)
	}

	addrs, err := netlink.AddrList(link, netlink.FAMILY_V4)
	if err != nil {
		return nil, fmt.Errorf("list addresses on %s: %w", name, err)
	}
	if len(addrs) == 0 {
		return nil, fmt.Errorf("interface %s has no IPv4 address", name)
	}

	return addrs[0].IPNet, nil
}

func (o *netlinkOps) LinkMAC(name string) (net.HardwareAddr, error) {
	link, err := netlink.LinkByName(name)
	if err != nil {
		return nil, fmt.Errorf("link %s: %w", name, err)
	}
	return link.Attrs().HardwareAddr, nil
}

func (o *netlinkOps) CreateMacvlan(name, parent string, addr *net.IPNet) error {
	parentLink, err := netlink.LinkByName(parent)
	if err != nil {
		return fmt.Errorf("parent link %s: %w", parent, err)
	}

	la := netlink.NewLinkAttrs()
	la.Name = name
	la.ParentIndex = parentLink.Attrs().Index
	mv := &netlink.Macvlan{
		LinkAttrs: la,
		Mode:      netlink.MACVLAN_MODE_BRIDGE,
	}

	if err := netlink.LinkAdd(mv); err != nil {
		return fmt.Errorf("add link %s: %w", name, err)
	}

	if err := netlink.AddrAdd(mv, &netlink.Addr{IPNet: addr}); err != nil {
		_ = netlink.LinkDel(mv)
		return fmt.Errorf("assign %s to %s: %w", addr, name, err)
	}

	if err := netlink.LinkSetUp(mv); err != nil {
		_ = netlink.LinkDel(mv)
		return fmt.Errorf("bring %s up: %w", name, err)
	}

	return nil
}

func (o *netlinkOps) PinNeighbor(name string, ip net.IP, mac net.HardwareAddr) error {
	link, err := netlink.LinkByName(name)
	if err != nil {
		return fmt.Errorf("link %s: %w", name, err)
	}

	neigh := &netlink.Neigh{
		LinkIndex:    link.Attrs().Index,
		State:        netlink.NUD_PERMANENT,
		IP:           ip,
		HardwareAddr: mac,
	}
	if err := netlink.NeighSet(neigh); err != nil {
		return fmt.Errorf("pin neighbor %s on %s: %w", ip, name, err)
	}
	return nil
}

func (o *netlinkOps) DeleteLink(name string) (bool, error) {
	link, err := netlink.LinkByName(name)
	if err != nil {
		return false, nil
	}

	if err := netlink.LinkDel(link); err != nil {
		return true, fmt.Errorf("delete link %s: %w", name, err)
	}
	return true, nil
}

// linkName derives the deterministic device name for the i-th service.
func linkName(i int) string {
	return fmt.Sprintf("%s%d", LinkPrefix, i)
}
