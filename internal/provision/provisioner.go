package provision

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"github.com/dynapsys/dynadock/pkg/caddyfile"
	"github.com/dynapsys/dynadock/pkg/ports"
	"github.com/dynapsys/dynadock/pkg/state"
)

// Provisioner runs the full provisioning and teardown flows. Create one
// per invocation; concurrent runs against the same project directory
// are not supported.
type Provisioner struct {
	store    *state.Store
	addrs    AddressAllocator
	portmap  PortMapper
	reloader ProxyReloader
	logger   *slog.Logger
}

func New(store *state.Store, addrs AddressAllocator, portmap PortMapper, reloader ProxyReloader) *Provisioner {
	return &Provisioner{
		store:    store,
		addrs:    addrs,
		portmap:  portmap,
		reloader: reloader,
		logger:   slog.Default(),
	}
}

// Up provisions every declared service and publishes the proxy config.
// Any per-service failure aborts and rolls back the whole batch: a
// route table with missing entries is worse than no route table.
func (p *Provisioner) Up(ctx context.Context, services []ServiceSpec, opts Options) (*Result, error) {
	runID := newRunID()
	logger := p.logger.With("run_id", runID)
	logger.Info("provisioning run started", "services", len(services))

	portAlloc, err := ports.NewAllocator(opts.PortRangeStart, opts.PortRangeEnd)
	if err != nil {
		return nil, err
	}

	allocated := make(map[string]int, len(services))
	releasePorts := func() {
		for _, port := range allocated {
			portAlloc.Release(port)
		}
	}

	for _, svc := range services {
		port, err := portAlloc.Allocate()
		if err != nil {
			releasePorts()
			return nil, fmt.Errorf("service %s: %w", svc.Name, err)
		}
		allocated[svc.Name] = port
		logger.Info("port assigned", "service", svc.Name, "port", port)
	}

	var addrAssignments map[string]lanAssignment
	if opts.LANMode {
		raw, err := p.addrs.Setup(ctx, serviceNames(services))
		if err != nil {
			releasePorts()
			return nil, err
		}
		addrAssignments = make(map[string]lanAssignment, len(raw))
		for name, a := range raw {
			addrAssignments[name] = lanAssignment{ip: a.IP, link: a.LinkName}
		}
	}

	m := buildMap(services, allocated, addrAssignments, opts)

	// Undo every network-level change of this run. Anything that fails
	// past this point must leave no links, rules or reserved ports
	// behind, because nothing was persisted for a later Down to find.
	rollback := func() {
		if err := p.removeForwards(m); err != nil {
			logger.Warn("rollback: could not remove port forwards", "error", err)
		}
		if opts.LANMode {
			if err := p.addrs.Teardown(ctx, m); err != nil {
				logger.Warn("rollback teardown failed", "error", err)
			}
		}
		releasePorts()
	}

	if opts.LANMode && opts.PortForward {
		if err := p.installForwards(m); err != nil {
			rollback()
			return nil, err
		}
	}

	if err := p.store.Save(m); err != nil {
		rollback()
		return nil, err
	}

	if err := p.writeConfig(services, m, opts); err != nil {
		rollback()
		if cerr := p.store.Clear(); cerr != nil {
			logger.Warn("rollback: could not clear state file", "error", cerr)
		}
		return nil, err
	}

	if !opts.SkipReload && p.reloader != nil {
		if err := p.reloader.Request(ctx); err != nil {
			logger.Warn("proxy reload failed, config written anyway", "error", err)
		}
	}

	logger.Info("provisioning run finished", "config", opts.ConfigPath)

	return &Result{
		RunID:       runID,
		Services:    services,
		Assignments: m,
		ConfigPath:  opts.ConfigPath,
	}, nil
}

// Down releases everything the persisted map says this run owns. It is
// idempotent: a second invocation against empty state succeeds.
func (p *Provisioner) Down(ctx context.Context, opts Options) error {
	m, err := p.store.Load()
	if err != nil {
		return err
	}
	if len(m) == 0 {
		p.logger.Info("no prior state, nothing to tear down")
		return nil
	}

	var errs []error

	if err := p.removeForwards(m); err != nil {
		errs = append(errs, err)
	}

	if err := p.addrs.Teardown(ctx, m); err != nil {
		errs = append(errs, err)
	}

	if opts.ConfigPath != "" {
		if err := os.Remove(opts.ConfigPath); err != nil && !os.IsNotExist(err) {
			errs = append(errs, fmt.Errorf("remove config artifact: %w", err))
		}
	}

	if err := p.store.Clear(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) == 0 {
		p.logger.Info("teardown finished", "services", len(m))
	}

	return errors.Join(errs...)
}

type lanAssignment struct {
	ip   string
	link string
}

func buildMap(services []ServiceSpec, allocated map[string]int, addrs map[string]lanAssignment, opts Options) state.Map {
	m := make(state.Map, len(services))

	for _, svc := range services {
		a := state.Assignment{Port: allocated[svc.Name]}

		if la, ok := addrs[svc.Name]; ok {
			ip, link := la.ip, la.link
			a.IP = &ip
			a.Interface = &link
			if opts.PortForward {
				a.Forwards = []state.Forward{{
					HostPort:    allocated[svc.Name],
					ServicePort: svc.InternalPort,
					Protocol:    "tcp",
				}}
			}
		}

		m[svc.Name] = a
	}

	return m
}

func (p *Provisioner) installForwards(m state.Map) error {
	if p.portmap == nil {
		return nil
	}
	for name, a := range m {
		if a.IP == nil || len(a.Forwards) == 0 {
			continue
		}
		if err := p.portmap.Add(*a.IP, a.Forwards); err != nil {
			return fmt.Errorf("service %s: %w", name, err)
		}
	}
	return nil
}

// removeForwards deletes the DNAT rules for every forwarding service.
// Rules that are already gone are fine; anything else is reported so
// the caller can surface or log it.
func (p *Provisioner) removeForwards(m state.Map) error {
	if p.portmap == nil {
		return nil
	}
	var errs []error
	for name, a := range m {
		if a.IP == nil || len(a.Forwards) == 0 {
			continue
		}
		if err := p.portmap.Remove(*a.IP, a.Forwards); err != nil {
			errs = append(errs, fmt.Errorf("service %s: remove forwards: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// writeConfig renders the proxy config in service input order and
// writes it atomically next to the state file.
func (p *Provisioner) writeConfig(services []ServiceSpec, m state.Map, opts Options) error {
	routes := make([]caddyfile.Route, 0, len(services))
	for _, svc := range services {
		a := m[svc.Name]
		host := "127.0.0.1"
		if a.IP != nil {
			host = *a.IP
		}
		routes = append(routes, caddyfile.Route{
			Service:      svc.Name,
			UpstreamHost: host,
			UpstreamPort: a.Port,
		})
	}

	content := caddyfile.Generate(routes, opts.Route)
	if err := state.WriteFileAtomic(opts.ConfigPath, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write proxy config %s: %w", opts.ConfigPath, err)
	}

	return nil
}

func serviceNames(services []ServiceSpec) []string {
	names := make([]string, len(services))
	for i, svc := range services {
		names[i] = svc.Name
	}
	return names
}

func newRunID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
