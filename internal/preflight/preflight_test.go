package preflight

import (
	"strings"
	"testing"

	"github.com/dynapsys/dynadock/pkg/netexec"
)

func TestVerifyAllChecksPass(t *testing.T) {
	rec := netexec.NewRecorder()

	err := Verify(rec, Options{
		PortRangeStart: 8000,
		PortRangeEnd:   9999,
		LANMode:        true,
		RequireProxy:   true,
		euid:           func() int { return 0 },
	})
	if err != nil {
		t.Errorf("expected all checks to pass, got %v", err)
	}
}

func TestVerifyReportsAllFailuresAtOnce(t *testing.T) {
	rec := netexec.NewRecorder()
	rec.MissingBinaries = []string{"caddy", "arping"}

	err := Verify(rec, Options{
		PortRangeStart: 9000,
		PortRangeEnd:   8000, // inverted
		LANMode:        true,
		RequireProxy:   true,
		euid:           func() int { return 1000 },
	})
	if err == nil {
		t.Fatal("expected failures")
	}

	msg := err.Error()
	for _, want := range []string{"port range", "caddy", "arping", "root"} {
		if !strings.Contains(msg, want) {
			t.Errorf("report missing %q failure:\n%s", want, msg)
		}
	}
}

func TestVerifyHonorsBinaryOverrides(t *testing.T) {
	t.Setenv("DYNADOCK_CADDY_BIN", "/opt/caddy/caddy")
	t.Setenv("DYNADOCK_ARPING_BIN", "arping3")

	rec := netexec.NewRecorder()
	// the standard names are absent; only the overrides resolve
	rec.MissingBinaries = []string{"caddy", "arping"}

	err := Verify(rec, Options{
		PortRangeStart: 8000,
		PortRangeEnd:   9999,
		LANMode:        true,
		RequireProxy:   true,
		euid:           func() int { return 0 },
	})
	if err != nil {
		t.Errorf("overridden binaries should satisfy preflight: %v", err)
	}
}

func TestVerifyLocalModeSkipsLANChecks(t *testing.T) {
	rec := netexec.NewRecorder()
	rec.MissingBinaries = []string{"arping"}

	err := Verify(rec, Options{
		PortRangeStart: 8000,
		PortRangeEnd:   9999,
		LANMode:        false,
		euid:           func() int { return 1000 },
	})
	if err != nil {
		t.Errorf("local mode should not require arping or root: %v", err)
	}
}
