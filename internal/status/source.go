package status

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/nholik/stackyard/internal/compose"
	"github.com/nholik/stackyard/internal/runtime"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// StackSummary is the runtime's point-in-time view of one stack.
type StackSummary struct {
	Name           string               `json:"name"`
	DefinitionPath string               `json:"definitionPath"`
	Services       []compose.StateCount `json:"services"`
}

// Total returns the number of services reported for the stack.
func (s StackSummary) Total() int {
	total := 0
	for _, entry := range s.Services {
		total += entry.Count
	}
	return total
}

// ServiceDetail is the state of one declared service of a stack.
type ServiceDetail struct {
	Name  string               `json:"name"`
	State compose.ServiceState `json:"state"`
	Image string               `json:"image,omitempty"`
	Ports []compose.Port       `json:"ports,omitempty"`
}

// Source asks the container runtime for stack and service status.
type Source struct {
	exec   runtime.Executor
	logger zerolog.Logger
}

// NewSource returns a status source backed by exec.
func NewSource(logger zerolog.Logger, exec runtime.Executor) *Source {
	return &Source{
		exec:   exec,
		logger: logger.With().Str("component", "status").Logger(),
	}
}

// GetAllStackSummaries lists every stack the runtime knows about, managed or
// not. One malformed record fails the whole call.
func (s *Source) GetAllStackSummaries(ctx context.Context) ([]StackSummary, error) {
	out, err := s.exec.Run(ctx, "", compose.ListArgs()...)
	if err != nil {
		return nil, fmt.Errorf("list stacks: %w", err)
	}

	records, err := compose.ParseStackList(out)
	if err != nil {
		return nil, fmt.Errorf("list stacks: %w", err)
	}

	summaries := make([]StackSummary, 0, len(records))
	for _, record := range records {
		counts, err := compose.ParseStatus(record.Status)
		if err != nil {
			return nil, fmt.Errorf("stack %q status: %w", record.Name, err)
		}
		summaries = append(summaries, StackSummary{
			Name:           record.Name,
			DefinitionPath: record.ConfigFiles,
			Services:       counts,
		})
	}
	return summaries, nil
}

// GetStackServiceDetails returns one entry per declared service, ordered by
// name. Declared services without a container are reported as inactive;
// containers of undeclared services are dropped.
func (s *Source) GetStackServiceDetails(ctx context.Context, definitionPath string) ([]ServiceDetail, error) {
	dir := compose.WorkingDir(definitionPath)

	var (
		project compose.Project
		records []compose.ServiceRecord
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		out, err := s.exec.Run(gctx, dir, compose.ConfigArgs(definitionPath)...)
		if err != nil {
			return fmt.Errorf("render config: %w", err)
		}
		project, err = compose.ParseProject(gctx, filepath.Base(dir), out)
		if err != nil {
			return fmt.Errorf("render config: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		out, err := s.exec.Run(gctx, dir, compose.PsArgs(definitionPath)...)
		if err != nil {
			return fmt.Errorf("list services: %w", err)
		}
		records, err = compose.ParseServiceList(out)
		if err != nil {
			return fmt.Errorf("list services: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return s.mergeServices(project, records)
}

func (s *Source) mergeServices(project compose.Project, records []compose.ServiceRecord) ([]ServiceDetail, error) {
	byService := make(map[string]compose.ServiceRecord, len(records))
	for _, record := range records {
		if _, seen := byService[record.Service]; seen {
			continue
		}
		byService[record.Service] = record
	}

	details := make([]ServiceDetail, 0, len(project.Services))
	for _, service := range project.Services {
		detail := ServiceDetail{
			Name:  service.Name,
			State: compose.StateInactive,
			Image: service.Image,
			Ports: service.Ports,
		}

		if record, ok := byService[service.Name]; ok {
			state, err := compose.ParseServiceState(record.State)
			if err != nil {
				return nil, fmt.Errorf("service %q: %w", service.Name, err)
			}
			detail.State = state
			if record.Image != "" {
				detail.Image = record.Image
			}
			if ports := record.Ports(); len(ports) > 0 {
				detail.Ports = ports
			}
			delete(byService, service.Name)
		}

		details = append(details, detail)
	}

	for name := range byService {
		s.logger.Debug().Str("service", name).Msg("dropping container of undeclared service")
	}

	return details, nil
}
