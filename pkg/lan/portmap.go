package lan

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/coreos/go-iptables/iptables"

	"github.com/dynapsys/dynadock/pkg/state"
)

// ruleTable is the subset of iptables operations port forwarding needs.
// Satisfied by *iptables.IPTables; faked in tests.
type ruleTable interface {
	AppendUnique(table, chain string, rulespec ...string) error
	Delete(table, chain string, rulespec ...string) error
}

// Portmap manages the DNAT rules that let LAN peers reach a service on
// its declared port at the virtual address, forwarded to the locally
// allocated one.
type Portmap struct {
	ipt    ruleTable
	logger *slog.Logger
}

func NewPortmap() (*Portmap, error) {
	ipt, err := iptables.New()
	if err != nil {
		return nil, fmt.Errorf("initialize iptables: %w", err)
	}

	return &Portmap{
		ipt:    ipt,
		logger: slog.Default(),
	}, nil
}

// Add installs one DNAT rule per forward. Only TCP is supported; other
// protocols are skipped.
//
//	iptables -t nat -A PREROUTING -d {vip} -p tcp --dport {service} \
//	    -j DNAT --to-destination {vip}:{host}
func (p *Portmap) Add(virtualIP string, forwards []state.Forward) error {
	for _, fwd := range forwards {
		if fwd.Protocol != "tcp" {
			continue
		}

		err := p.ipt.AppendUnique("nat", "PREROUTING",
			"-d", virtualIP,
			"-p", "tcp",
			"--dport", strconv.Itoa(fwd.ServicePort),
			"-j", "DNAT",
			"--to-destination", fmt.Sprintf("%s:%d", virtualIP, fwd.HostPort))
		if err != nil {
			return fmt.Errorf("add forward %s:%d -> :%d: %w",
				virtualIP, fwd.ServicePort, fwd.HostPort, err)
		}

		p.logger.Debug("port forward added",
			"ip", virtualIP,
			"service_port", fwd.ServicePort,
			"host_port", fwd.HostPort)
	}

	return nil
}

// Remove deletes the rules Add installed. A rule that is already gone
// is success; anything else (e.g. permission denied) is reported.
func (p *Portmap) Remove(virtualIP string, forwards []state.Forward) error {
	for _, fwd := range forwards {
		if fwd.Protocol != "tcp" {
			continue
		}

		err := p.ipt.Delete("nat", "PREROUTING",
			"-d", virtualIP,
			"-p", "tcp",
			"--dport", strconv.Itoa(fwd.ServicePort),
			"-j", "DNAT",
			"--to-destination", fmt.Sprintf("%s:%d", virtualIP, fwd.HostPort))
		if err != nil {
			if ipterr, ok := err.(*iptables.Error); ok && ipterr.IsNotExist() {
				continue
			}
			return fmt.Errorf("remove forward %s:%d -> :%d: %w",
				virtualIP, fwd.ServicePort, fwd.HostPort, err)
		}
	}

	return nil
}
