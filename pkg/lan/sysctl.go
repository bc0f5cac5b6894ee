package lan

import (
	"fmt"
	"os"
)

const ipForwardPath = "/proc/sys/net/ipv4/ip_forward"

// enableIPForwarding turns on IPv4 forwarding in the kernel. Already
// enabled counts as success.
func enableIPForwarding() error {
	data, err := os.ReadFile(ipForwardPath)
	if err != nil {
		return fmt.Errorf("read ip_forward: %w", err)
	}

	if len(data) > 0 && data[0] == '1' {
		return nil
	}

	if err := os.WriteFile(ipForwardPath, []byte("1"), 0o644); err != nil {
		return fmt.Errorf("write ip_forward: %w", err)
	}

	return nil
}

// enableProxyARP lets the parent interface answer ARP for the macvlan
// addresses, improving visibility on switches that filter unknown MACs.
func enableProxyARP(iface string) error {
	path := fmt.Sprintf("/proc/sys/net/ipv4/conf/%s/proxy_arp", iface)
	if err := os.WriteFile(path, []byte("1"), 0o644); err != nil {
		return fmt.Errorf("write proxy_arp for %s: %w", iface, err)
	}
	return nil
}
