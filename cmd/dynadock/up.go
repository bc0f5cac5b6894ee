package main

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dynapsys/dynadock/internal/envfile"
	"github.com/dynapsys/dynadock/internal/manifest"
	"github.com/dynapsys/dynadock/internal/preflight"
	"github.com/dynapsys/dynadock/internal/provision"
	"github.com/dynapsys/dynadock/pkg/caddyfile"
	"github.com/dynapsys/dynadock/pkg/lan"
	"github.com/dynapsys/dynadock/pkg/netexec"
	"github.com/dynapsys/dynadock/pkg/state"
)

type upOptions struct {
	manifestPath string
	domain       string
	startPort    int
	endPort      int
	enableTLS    bool
	corsOrigins  []string
	lanMode      bool
	portForward  bool
	gateway      string
	healthPath   string
	skipReload   bool
}

func newUpCmd(root *rootOptions) *cobra.Command {
	opts := &upOptions{}

	cmd := &cobra.Command{
		Use:   "up",
		Short: "Allocate addresses for all declared services and publish proxy routes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUp(cmd, root, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.manifestPath, "manifest", "f", "", "service declaration file (default <project-dir>/"+defaultManifest+")")
	cmd.Flags().StringVarP(&opts.domain, "domain", "d", caddyfile.DefaultDomain, "base domain for service hostnames")
	cmd.Flags().IntVarP(&opts.startPort, "start-port", "p", 8000, "first port of the allocation range")
	cmd.Flags().IntVar(&opts.endPort, "end-port", 9999, "last port of the allocation range")
	cmd.Flags().BoolVar(&opts.enableTLS, "enable-tls", false, "emit internal-CA TLS for every route")
	cmd.Flags().StringArrayVarP(&opts.corsOrigins, "cors-origin", "c", nil, "additional CORS allowed origin (repeatable)")
	cmd.Flags().BoolVar(&opts.lanMode, "lan", false, "assign each service a LAN-visible virtual address (requires root)")
	cmd.Flags().BoolVar(&opts.portForward, "port-forward", false, "with --lan, forward each service's declared port on its virtual address")
	cmd.Flags().StringVar(&opts.gateway, "gateway", "", "service that also answers on the bare base domain")
	cmd.Flags().StringVar(&opts.healthPath, "health-path", caddyfile.DefaultHealthPath, "health check path probed on every upstream")
	cmd.Flags().BoolVar(&opts.skipReload, "skip-reload", false, "write the config artifact without reloading the proxy")

	return cmd
}

func runUp(cmd *cobra.Command, root *rootOptions, opts *upOptions) error {
	manifestPath := opts.manifestPath
	if manifestPath == "" {
		manifestPath = filepath.Join(root.projectDir, defaultManifest)
	}

	services, err := manifest.Load(manifestPath)
	if err != nil {
		return err
	}

	runner := netexec.NewOSRunner()

	err = preflight.Verify(runner, preflight.Options{
		PortRangeStart: opts.startPort,
		PortRangeEnd:   opts.endPort,
		LANMode:        opts.lanMode,
		RequireProxy:   !opts.skipReload,
	})
	if err != nil {
		return err
	}

	store := state.NewStore(root.statePath())

	var portmap provision.PortMapper
	if opts.lanMode && opts.portForward {
		pm, err := lan.NewPortmap()
		if err != nil {
			return err
		}
		portmap = pm
	}

	p := provision.New(store, lan.NewAllocator(runner), portmap, caddyfile.NewReloader(runner, root.configPath()))

	provOpts := provision.Options{
		PortRangeStart: opts.startPort,
		PortRangeEnd:   opts.endPort,
		LANMode:        opts.lanMode,
		PortForward:    opts.portForward,
		ConfigPath:     root.configPath(),
		SkipReload:     opts.skipReload,
		Route: caddyfile.Options{
			Domain:         opts.domain,
			EnableTLS:      opts.enableTLS,
			CORSOrigins:    opts.corsOrigins,
			HealthPath:     opts.healthPath,
			GatewayService: opts.gateway,
		},
	}

	result, err := p.Up(cmd.Context(), services, provOpts)
	if err != nil {
		return err
	}

	env := envfile.Render(result, opts.domain, opts.enableTLS, opts.corsOrigins)
	if err := envfile.Write(root.envPath(), env); err != nil {
		return err
	}

	printAssignments(result, opts.domain, opts.enableTLS)
	return nil
}

func printAssignments(result *provision.Result, domain string, enableTLS bool) {
	scheme := "http"
	if enableTLS {
		scheme = "https"
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "SERVICE\tPORT\tIP\tURL")
	for _, svc := range result.Services {
		a := result.Assignments[svc.Name]
		ip := "-"
		if a.IP != nil {
			ip = *a.IP
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%s://%s.%s\n", svc.Name, a.Port, ip, scheme, svc.Name, domain)
	}
	_ = w.Flush()
}
