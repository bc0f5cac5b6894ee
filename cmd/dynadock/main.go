package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

// Conventional file names inside the project directory.
const (
	defaultManifest = "dynadock.yaml"
	stateFileName   = ".dynadock_state.json"
	configFileName  = "Caddyfile.dynadock"
	envFileName     = ".env.dynadock"
)

type rootOptions struct {
	projectDir string
	verbose    bool
}

func (o *rootOptions) statePath() string {
	return filepath.Join(o.projectDir, stateFileName)
}

func (o *rootOptions) configPath() string {
	return filepath.Join(o.projectDir, configFileName)
}

func (o *rootOptions) envPath() string {
	return filepath.Join(o.projectDir, envFileName)
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "dynadock",
		Short:         "Provision local ports, LAN-visible addresses and proxy routes for declared services",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if opts.verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
	}

	root.PersistentFlags().StringVarP(&opts.projectDir, "project-dir", "C", ".", "project directory holding manifest, state and generated files")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newUpCmd(opts), newDownCmd(opts), newStatusCmd(opts))

	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
