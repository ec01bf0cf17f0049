package deploy

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/docker/go-connections/nat"
	"github.com/nholik/stackyard/internal/catalog"
)

const minNameLength = 3

var serviceNamePattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_.-]*$`)

// Request describes a stack to create.
type Request struct {
	Name     string    `json:"name" yaml:"name"`
	Services []Service `json:"services" yaml:"services"`
}

// Service is one container of a requested stack.
type Service struct {
	Name  string        `json:"name" yaml:"name"`
	Image string        `json:"image" yaml:"image"`
	Ports []PortMapping `json:"ports,omitempty" yaml:"ports,omitempty"`
}

// PortMapping publishes Target inside the container on host port Published.
type PortMapping struct {
	Published int `json:"published" yaml:"published"`
	Target    int `json:"target" yaml:"target"`
}

func (p PortMapping) String() string {
	return fmt.Sprintf("%d:%d", p.Published, p.Target)
}

// ValidationError reports an invalid request field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Validate checks the request and returns the first problem found.
func (r Request) Validate() error {
	name := strings.TrimSpace(r.Name)
	if len(name) < minNameLength {
		return &ValidationError{Field: "name", Reason: fmt.Sprintf("must be at least %d characters", minNameLength)}
	}
	if catalog.ValidateName(name) != nil {
		return &ValidationError{Field: "name", Reason: "must start with a lowercase letter or digit and contain only lowercase letters, digits, '_', '-'"}
	}
	if len(r.Services) == 0 {
		return &ValidationError{Field: "services", Reason: "at least one service is required"}
	}

	services := make(map[string]bool, len(r.Services))
	published := make(map[nat.Port]string)

	for i, svc := range r.Services {
		field := fmt.Sprintf("services[%d]", i)
		if svc.Name == "" {
			return &ValidationError{Field: field + ".name", Reason: "is required"}
		}
		if !serviceNamePattern.MatchString(svc.Name) {
			return &ValidationError{Field: field + ".name", Reason: fmt.Sprintf("%q is not a valid service name", svc.Name)}
		}
		if services[svc.Name] {
			return &ValidationError{Field: field + ".name", Reason: fmt.Sprintf("duplicate service %q", svc.Name)}
		}
		services[svc.Name] = true

		if strings.TrimSpace(svc.Image) == "" || strings.ContainsAny(svc.Image, " \t\n") {
			return &ValidationError{Field: field + ".image", Reason: "must be a non-empty image reference"}
		}

		for j, port := range svc.Ports {
			portField := fmt.Sprintf("%s.ports[%d]", field, j)
			if err := validatePort(port.Published); err != nil {
				return &ValidationError{Field: portField + ".published", Reason: err.Error()}
			}
			if err := validatePort(port.Target); err != nil {
				return &ValidationError{Field: portField + ".target", Reason: err.Error()}
			}

			key, err := nat.NewPort("tcp", strconv.Itoa(port.Published))
			if err != nil {
				return &ValidationError{Field: portField + ".published", Reason: err.Error()}
			}
			if owner, taken := published[key]; taken {
				return &ValidationError{Field: portField + ".published", Reason: fmt.Sprintf("port %d already published by %q", port.Published, owner)}
			}
			published[key] = svc.Name
		}
	}

	return nil
}

func validatePort(port int) error {
	parsed, err := nat.ParsePort(strconv.Itoa(port))
	if err != nil {
		return fmt.Errorf("port %d out of range", port)
	}
	if parsed < 1 {
		return fmt.Errorf("port %d out of range", port)
	}
	return nil
}
