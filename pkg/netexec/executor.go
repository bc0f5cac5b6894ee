package netexec

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Runner executes external network tools (arping, caddy, ...).
//
// All privileged shell-outs go through this interface so that the
// allocators stay testable without touching the host. The real
// implementation wraps exec.CommandContext; tests use Recorder.
type Runner interface {
	// Run executes the command and waits for it. The returned output is
	// combined stdout+stderr, included in the error on failure.
	Run(ctx context.Context, name string, args ...string) ([]byte, error)

	// LookPath reports whether the named binary is resolvable on PATH.
	LookPath(name string) (string, error)
}

// OSRunner is the default Runner backed by os/exec.
type OSRunner struct{}

func NewOSRunner() *OSRunner {
	return &OSRunner{}
}

func (r *OSRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	if err := cmd.Run(); err != nil {
		return buf.Bytes(), fmt.Errorf("%s %s: %w: %s",
			name, strings.Join(args, " "), err, strings.TrimSpace(buf.String()))
	}

	return buf.Bytes(), nil
}

func (r *OSRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}
