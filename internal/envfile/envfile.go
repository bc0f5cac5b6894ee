// Package envfile renders the .env.dynadock file that hands allocated
// endpoints to the external compose collaborator.
package envfile

import (
	"fmt"
	"strings"

	"github.com/dynapsys/dynadock/internal/provision"
	"github.com/dynapsys/dynadock/pkg/state"
)

// DefaultPath is the conventional env file location in a project dir.
const DefaultPath = ".env.dynadock"

// Render produces the env file content in service input order, so the
// result is deterministic for the same run.
func Render(result *provision.Result, domain string, enableTLS bool, corsOrigins []string) string {
	var b strings.Builder

	scheme := "http"
	if enableTLS {
		scheme = "https"
	}

	fmt.Fprintf(&b, "DYNADOCK_RUN_ID=%s\n", result.RunID)
	fmt.Fprintf(&b, "DYNADOCK_DOMAIN=%s\n", domain)
	fmt.Fprintf(&b, "DYNADOCK_TLS=%t\n", enableTLS)
	if len(corsOrigins) > 0 {
		fmt.Fprintf(&b, "DYNADOCK_CORS_ORIGINS=%s\n", strings.Join(corsOrigins, ","))
	}

	for _, svc := range result.Services {
		a := result.Assignments[svc.Name]
		key := envKey(svc.Name)

		fmt.Fprintf(&b, "DYNADOCK_%s_PORT=%d\n", key, a.Port)
		fmt.Fprintf(&b, "DYNADOCK_%s_URL=%s://%s.%s\n", key, scheme, svc.Name, domain)
		if a.IP != nil {
			fmt.Fprintf(&b, "DYNADOCK_%s_IP=%s\n", key, *a.IP)
		}
	}

	return b.String()
}

// Write persists the rendered content atomically.
func Write(path, content string) error {
	if err := state.WriteFileAtomic(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write env file %s: %w", path, err)
	}
	return nil
}

// envKey turns a service name into an env-var-safe fragment:
// "my-api" -> "MY_API".
func envKey(name string) string {
	mapped := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, name)
	return mapped
}
