package deploy

import (
	"context"
	"fmt"
	"strings"

	"github.com/nholik/stackyard/internal/catalog"
	"github.com/nholik/stackyard/internal/compose"
	"github.com/rs/zerolog"
)

// DefinitionStore creates stack definitions.
type DefinitionStore interface {
	IsNameAvailable(name string) (bool, error)
	Create(name string, content []byte) (catalog.Definition, error)
}

// Deployer turns deployment requests into stack definitions on disk.
type Deployer struct {
	store  DefinitionStore
	logger zerolog.Logger
}

// NewDeployer returns a deployer writing to store.
func NewDeployer(logger zerolog.Logger, store DefinitionStore) *Deployer {
	return &Deployer{
		store:  store,
		logger: logger.With().Str("component", "deploy").Logger(),
	}
}

// Create validates and renders r, verifies the result loads as a compose
// file, and writes it as a new stack definition. The stack is not started.
func (d *Deployer) Create(ctx context.Context, r Request) (catalog.Definition, error) {
	r.Name = strings.TrimSpace(r.Name)
	if err := r.Validate(); err != nil {
		return catalog.Definition{}, err
	}

	available, err := d.store.IsNameAvailable(r.Name)
	if err != nil {
		return catalog.Definition{}, err
	}
	if !available {
		return catalog.Definition{}, fmt.Errorf("%w: %s", catalog.ErrNameTaken, r.Name)
	}

	content, err := Render(r)
	if err != nil {
		return catalog.Definition{}, err
	}
	if err := compose.ValidateDefinition(ctx, r.Name, content); err != nil {
		return catalog.Definition{}, fmt.Errorf("verify rendered definition: %w", err)
	}

	def, err := d.store.Create(r.Name, content)
	if err != nil {
		return catalog.Definition{}, err
	}

	d.logger.Info().Str("stack", def.Name).Int("services", len(r.Services)).Msg("deployment created")
	return def, nil
}
