package registry

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"

	"restoctl/internal/domain"
)

//go:embed wellknown.yaml
var wellKnownSeed []byte

type seedFile struct {
	Servers []seedServer `yaml:"servers"`
}

type seedServer struct {
	Name           string      `yaml:"name"`
	Application    seedAccess  `yaml:"application"`
	Authentication *seedAccess `yaml:"authentication"`
}

type seedAccess struct {
	BaseURL  string `yaml:"baseUrl"`
	Protocol string `yaml:"protocol"`
}

var wellKnownOnce = sync.OnceValues(decodeWellKnown)

// WellKnownServers returns the predefined server set shipped with this build.
// Every entry comes back fresh: status NeverReached, empty cache.
func WellKnownServers() ([]domain.ServerDefinition, error) {
	servers, err := wellKnownOnce()
	if err != nil {
		return nil, err
	}
	out := make([]domain.ServerDefinition, len(servers))
	for i, srv := range servers {
		out[i] = srv.Clone()
	}
	return out, nil
}

func decodeWellKnown() ([]domain.ServerDefinition, error) {
	var file seedFile
	if err := yaml.Unmarshal(wellKnownSeed, &file); err != nil {
		return nil, fmt.Errorf("decode well-known server seed: %w", err)
	}

	servers := make([]domain.ServerDefinition, 0, len(file.Servers))
	for _, seed := range file.Servers {
		def := domain.ServerDefinition{
			Name:        seed.Name,
			Origin:      domain.OriginPredefined,
			Application: domain.ServiceAccess(seed.Application),
			Status:      domain.StatusNeverReached,
		}
		if seed.Authentication != nil {
			auth := domain.ServiceAccess(*seed.Authentication)
			def.Authentication = &auth
		}
		normalized, err := def.Normalize()
		if err != nil {
			return nil, fmt.Errorf("well-known server %q: %w", seed.Name, err)
		}
		servers = append(servers, normalized)
	}
	return servers, nil
}
