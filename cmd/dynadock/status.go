package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/dynapsys/dynadock/internal/diag"
	"github.com/dynapsys/dynadock/pkg/state"
)

func newStatusCmd(root *rootOptions) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the current assignment map and probe each endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			store := state.NewStore(root.statePath())

			m, err := store.Load()
			if err != nil {
				return err
			}
			if len(m) == 0 {
				fmt.Println("no services provisioned")
				return nil
			}

			results := diag.CheckAll(cmd.Context(), m, timeout)

			w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
			fmt.Fprintln(w, "SERVICE\tENDPOINT\tREACHABLE")
			for _, r := range results {
				reachable := "yes"
				if !r.Reachable {
					reachable = "no"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", r.Service, r.Addr, reachable)
			}
			return w.Flush()
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", diag.DefaultTimeout, "per-endpoint probe timeout")

	return cmd
}
