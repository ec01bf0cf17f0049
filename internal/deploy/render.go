package deploy

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

type composeFile struct {
	Services map[string]composeService `yaml:"services"`
}

type composeService struct {
	Image string   `yaml:"image"`
	Ports []string `yaml:"ports,omitempty"`
}

// Render produces the compose definition for a validated request.
func Render(r Request) ([]byte, error) {
	file := composeFile{Services: make(map[string]composeService, len(r.Services))}
	for _, svc := range r.Services {
		rendered := composeService{Image: svc.Image}
		for _, port := range svc.Ports {
			rendered.Ports = append(rendered.Ports, port.String())
		}
		file.Services[svc.Name] = rendered
	}

	out, err := yaml.Marshal(file)
	if err != nil {
		return nil, fmt.Errorf("render compose: %w", err)
	}
	return out, nil
}
