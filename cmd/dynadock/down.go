package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/dynapsys/dynadock/internal/provision"
	"github.com/dynapsys/dynadock/pkg/lan"
	"github.com/dynapsys/dynadock/pkg/netexec"
	"github.com/dynapsys/dynadock/pkg/state"
)

func newDownCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "down",
		Short: "Release everything the last provisioning run created",
		RunE: func(cmd *cobra.Command, args []string) error {
			runner := netexec.NewOSRunner()
			store := state.NewStore(root.statePath())

			// Best effort: without iptables access, link teardown and
			// state cleanup still proceed.
			var portmap provision.PortMapper
			if pm, err := lan.NewPortmap(); err == nil {
				portmap = pm
			} else {
				slog.Warn("iptables unavailable, skipping forward cleanup", "error", err)
			}

			p := provision.New(store, lan.NewAllocator(runner), portmap, nil)

			return p.Down(cmd.Context(), provision.Options{
				ConfigPath: root.configPath(),
			})
		},
	}
}
