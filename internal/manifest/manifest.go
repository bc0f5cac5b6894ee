// Package manifest loads the service declaration file: the minimal
// {name, port} list the provisioning engine consumes. Full
// docker-compose parsing stays with the external collaborator.
package manifest

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dynapsys/dynadock/internal/provision"
)

type fileFormat struct {
	Services []struct {
		Name string `yaml:"name"`
		Port int    `yaml:"port"`
	} `yaml:"services"`
}

// Load reads the declaration file and returns the ordered service list.
func Load(path string) ([]provision.ServiceSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", path, err)
	}

	return Parse(data)
}

// Parse decodes and validates a manifest document.
func Parse(data []byte) ([]provision.ServiceSpec, error) {
	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}

	if len(f.Services) == 0 {
		return nil, fmt.Errorf("manifest declares no services")
	}

	seen := make(map[string]struct{}, len(f.Services))
	specs := make([]provision.ServiceSpec, 0, len(f.Services))

	for i, svc := range f.Services {
		if svc.Name == "" {
			return nil, fmt.Errorf("service #%d has no name", i)
		}
		if _, dup := seen[svc.Name]; dup {
			return nil, fmt.Errorf("duplicate service name %q", svc.Name)
		}
		if svc.Port < 1 || svc.Port > 65535 {
			return nil, fmt.Errorf("service %s: port %d out of range", svc.Name, svc.Port)
		}

		seen[svc.Name] = struct{}{}
		specs = append(specs, provision.ServiceSpec{
			Name:         svc.Name,
			InternalPort: svc.Port,
		})
	}

	return specs, nil
}
