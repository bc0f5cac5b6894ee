package lan

import (
	"context"
	"net"
	"os"
)

// ArpingBin resolves the arping binary, overridable via
// DYNADOCK_ARPING_BIN.
func ArpingBin() string {
	if bin := os.Getenv("DYNADOCK_ARPING_BIN"); bin != "" {
		return bin
	}
	return "arping"
}

func pingBin() string {
	if bin := os.Getenv("DYNADOCK_PING_BIN"); bin != "" {
		return bin
	}
	return "ping"
}

// addrInUse reports whether something on the LAN already answers for ip.
// A responding ping or ARP reply means the address is taken. Probe
// failures count as "in use": handing out an address we could not verify
// is worse than skipping it.
func (a *Allocator) addrInUse(ctx context.Context, ip string) bool {
	if _, err := a.runner.Run(ctx, pingBin(), "-c", "1", "-W", "1", ip); err == nil {
		return true
	}

	// ping gave no answer; confirm with an ARP probe
	_, err := a.runner.Run(ctx, ArpingBin(), "-c", "1", "-w", "1", ip)
	return err == nil
}

// announce broadcasts a gratuitous ARP for ip on the given link so LAN
// peers update their caches immediately instead of waiting for timeouts.
// Best effort: a failed announcement only delays discovery.
func (a *Allocator) announce(ctx context.Context, link, ip string) {
	if _, err := a.runner.Run(ctx, ArpingBin(), "-U", "-I", link, "-c", "3", ip); err != nil {
		a.logger.Warn("gratuitous ARP announcement failed",
			"link", link,
			"ip", ip,
			"error", err)
	}
}

// nextAddrs walks subnet hosts starting at AddrOffset above the network
// address and collects count addresses that nothing on the LAN answers
// for. Returns ErrRangeExhausted when the subnet or the probe budget
// runs out first.
func (a *Allocator) nextAddrs(ctx context.Context, subnet *net.IPNet, count int) ([]net.IP, error) {
	network := subnet.IP.Mask(subnet.Mask).To4()
	if network == nil {
		return nil, ErrRangeExhausted
	}

	ones, bits := subnet.Mask.Size()
	broadcast := ipToUint32(network) | (1<<(bits-ones) - 1)

	var free []net.IP
	probed := 0

	for n := ipToUint32(network) + AddrOffset; ; n++ {
		// stay inside the host range, excluding the broadcast address
		if n >= broadcast {
			return nil, ErrRangeExhausted
		}
		candidate := uint32ToIP(n)
		if probed >= a.probeLimit {
			a.logger.Warn("reached probe limit while scanning for free addresses",
				"limit", a.probeLimit,
				"found", len(free),
				"needed", count)
			return nil, ErrRangeExhausted
		}

		probed++
		if a.addrInUse(ctx, candidate.String()) {
			a.logger.Debug("address in use, skipping", "ip", candidate.String())
			continue
		}

		free = append(free, candidate)
		if len(free) == count {
			return free, nil
		}
	}
}

func ipToUint32(ip net.IP) uint32 {
	ip = ip.To4()
	return uint32(ip[0])<<24 | uint32(ip[1])<<16 | uint32(ip[2])<<8 | uint32(ip[3])
}

func uint32ToIP(n uint32) net.IP {
	return net.IPv4(byte(n>>24), byte(n>>16), byte(n>>8), byte(n)).To4()
}
