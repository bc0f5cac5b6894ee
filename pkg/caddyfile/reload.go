package caddyfile

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/dynapsys/dynadock/pkg/netexec"
)

// Reloader asks the external Caddy process to pick up a new config.
// Caddy itself is an external collaborator; this only sends the signal.
type Reloader struct {
	runner     netexec.Runner
	configPath string
	logger     *slog.Logger
}

func NewReloader(runner netexec.Runner, configPath string) *Reloader {
	return &Reloader{
		runner:     runner,
		configPath: configPath,
		logger:     slog.Default(),
	}
}

// CaddyBin resolves the caddy binary, overridable via
// DYNADOCK_CADDY_BIN.
func CaddyBin() string {
	if bin := os.Getenv("DYNADOCK_CADDY_BIN"); bin != "" {
		return bin
	}
	return "caddy"
}

// Request triggers a config reload.
func (r *Reloader) Request(ctx context.Context) error {
	r.logger.Info("requesting proxy reload", "config", r.configPath)

	_, err := r.runner.Run(ctx, CaddyBin(), "reload", "--config", r.configPath, "--adapter", "caddyfile")
	if err != nil {
		return fmt.Errorf("reload proxy: %w", err)
	}
	return nil
}
