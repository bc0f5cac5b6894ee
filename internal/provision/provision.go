// Package provision coordinates a provisioning run: allocate ports,
// optionally bring up LAN-visible virtual addresses, persist the
// assignment map and publish the reverse-proxy configuration.
package provision

import (
	"context"

	"github.com/dynapsys/dynadock/pkg/caddyfile"
	"github.com/dynapsys/dynadock/pkg/lan"
	"github.com/dynapsys/dynadock/pkg/state"
)

// ServiceSpec declares one service to provision. Input, immutable;
// produced by the collaborator that parses the user's service
// description file.
type ServiceSpec struct {
	Name         string
	InternalPort int
}

// Options configure one provisioning run.
type Options struct {
	// Port range handed to the port allocator.
	PortRangeStart int
	PortRangeEnd   int

	// LANMode assigns each service a LAN-visible virtual address.
	LANMode bool

	// PortForward additionally installs DNAT rules so LAN peers reach
	// each service on its declared port at the virtual address.
	// Requires LANMode.
	PortForward bool

	// Route options handed to the config generator.
	Route caddyfile.Options

	// ConfigPath is where the rendered proxy configuration is written.
	ConfigPath string

	// SkipReload leaves the running proxy untouched after writing the
	// config artifact.
	SkipReload bool
}

// Result is the outcome of a successful run.
type Result struct {
	RunID       string
	Services    []ServiceSpec // input order
	Assignments state.Map
	ConfigPath  string
}

// AddressAllocator is the LAN-mode collaborator. Implemented by
// *lan.Allocator; faked in tests.
type AddressAllocator interface {
	Setup(ctx context.Context, serviceNames []string) (map[string]lan.AddressAssignment, error)
	Teardown(ctx context.Context, m state.Map) error
}

// PortMapper installs and removes the LAN port-forward rules.
// Implemented by *lan.Portmap.
type PortMapper interface {
	Add(virtualIP string, forwards []state.Forward) error
	Remove(virtualIP string, forwards []state.Forward) error
}

// ProxyReloader asks the external proxy to pick up a new config.
// Implemented by *caddyfile.Reloader.
type ProxyReloader interface {
	Request(ctx context.Context) error
}
