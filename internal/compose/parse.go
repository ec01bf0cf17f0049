package compose

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/compose-spec/compose-go/v2/loader"
	"github.com/compose-spec/compose-go/v2/types"
)

const (
	defaultFilename    = "docker-compose.yml"
	defaultProjectName = "stackyard"
)

// Project is the canonical service list of a stack.
type Project struct {
	Name     string
	Services []ProjectService
}

// ProjectService captures the fields shown for a declared service.
type ProjectService struct {
	Name  string
	Image string
	Ports []Port
}

// ParseProject loads the output of "compose config --format json" into the
// canonical service list, ordered by service name.
func ParseProject(ctx context.Context, name string, body []byte) (Project, error) {
	project, err := load(ctx, name, body, func(opts *loader.Options) {
		opts.SkipValidation = true
		opts.SkipConsistencyCheck = true
		opts.SkipResolveEnvironment = true
	})
	if err != nil {
		return Project{}, &ParseError{Input: string(body), Reason: err.Error()}
	}
	return project, nil
}

// ValidateDefinition checks that body is a loadable compose file declaring at
// least one service with an image.
func ValidateDefinition(ctx context.Context, name string, body []byte) error {
	project, err := load(ctx, name, body)
	if err != nil {
		return err
	}
	if len(project.Services) == 0 {
		return errors.New("compose has no services")
	}
	for _, service := range project.Services {
		if service.Image == "" {
			return fmt.Errorf("service %q missing image", service.Name)
		}
	}
	return nil
}

func load(ctx context.Context, name string, body []byte, extra ...func(*loader.Options)) (Project, error) {
	if len(body) == 0 {
		return Project{}, errors.New("compose body is empty")
	}

	details := types.ConfigDetails{
		WorkingDir: ".",
		ConfigFiles: []types.ConfigFile{
			{
				Filename: defaultFilename,
				Content:  body,
			},
		},
		Environment: types.Mapping{},
	}

	options := append([]func(*loader.Options){
		func(opts *loader.Options) {
			opts.SetProjectName(projectName(name), false)
			opts.SkipInterpolation = true
		},
	}, extra...)

	loaded, err := loader.LoadWithContext(ctx, details, options...)
	if err != nil {
		return Project{}, fmt.Errorf("load compose: %w", err)
	}

	project := Project{
		Name:     loaded.Name,
		Services: make([]ProjectService, 0, len(loaded.Services)),
	}
	for serviceName, service := range loaded.Services {
		project.Services = append(project.Services, ProjectService{
			Name:  serviceName,
			Image: service.Image,
			Ports: convertPorts(service.Ports),
		})
	}
	sort.Slice(project.Services, func(i, j int) bool {
		return project.Services[i].Name < project.Services[j].Name
	})

	return project, nil
}

func convertPorts(ports []types.ServicePortConfig) []Port {
	if len(ports) == 0 {
		return nil
	}
	converted := make([]Port, 0, len(ports))
	for _, port := range ports {
		converted = append(converted, Port{
			Published: port.Published,
			Target:    port.Target,
			Protocol:  port.Protocol,
		})
	}
	return converted
}

// CheckProjectName rejects names the runtime would rewrite when it derives
// a project name, since stacks are joined with runtime entries by name.
func CheckProjectName(name string) error {
	if name == "" || loader.NormalizeProjectName(name) != name {
		return loader.InvalidProjectNameErr(name)
	}
	return nil
}

func projectName(name string) string {
	if normalized := loader.NormalizeProjectName(name); normalized != "" {
		return normalized
	}
	return defaultProjectName
}
