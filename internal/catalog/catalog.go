package catalog

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/nholik/stackyard/internal/compose"
	"github.com/rs/zerolog"
)

const (
	// DefaultFilename is the definition file looked for in each stack directory.
	DefaultFilename = "docker-compose.yml"

	dirPerm  = 0o755
	filePerm = 0o644
)

// Definition is a managed stack discovered under the catalog root.
type Definition struct {
	Name      string `json:"name"`
	Directory string `json:"directory"`
	Path      string `json:"definitionPath"`
}

// Catalog enumerates stack definitions stored as <root>/<name>/<filename>.
type Catalog struct {
	root     string
	filename string
	logger   zerolog.Logger
}

// New returns a catalog rooted at root. The root is made absolute so that
// definition paths compare equal to the paths the runtime reports.
func New(logger zerolog.Logger, root, filename string) (*Catalog, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("catalog root is required")
	}
	if filename == "" {
		filename = DefaultFilename
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve catalog root: %w", err)
	}
	return &Catalog{
		root:     abs,
		filename: filename,
		logger:   logger.With().Str("component", "catalog").Logger(),
	}, nil
}

// Root returns the absolute catalog root.
func (c *Catalog) Root() string {
	return c.root
}

// Filename returns the definition file name.
func (c *Catalog) Filename() string {
	return c.filename
}

// List returns the managed stacks in directory enumeration order. Entries
// that cannot be inspected are skipped. A missing root yields an empty list.
func (c *Catalog) List(ctx context.Context) ([]Definition, error) {
	entries, err := os.ReadDir(c.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			c.logger.Debug().Str("root", c.root).Msg("catalog root does not exist")
			return nil, nil
		}
		return nil, &FilesystemError{Op: "readdir", Path: c.root, Err: err}
	}

	definitions := make([]Definition, 0, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		def, ok := c.inspect(entry.Name())
		if !ok {
			continue
		}
		if err := ValidateName(def.Name); err != nil {
			c.logger.Warn().Err(err).Str("path", def.Path).Msg("skipping stack directory that is not a project name")
			continue
		}
		definitions = append(definitions, def)
	}
	return definitions, nil
}

func (c *Catalog) inspect(name string) (Definition, bool) {
	dir := filepath.Join(c.root, name)
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return Definition{}, false
	}

	path := filepath.Join(dir, c.filename)
	info, err = os.Stat(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			c.logger.Debug().Err(err).Str("path", path).Msg("skipping unreadable stack directory")
		}
		return Definition{}, false
	}
	if !info.Mode().IsRegular() {
		return Definition{}, false
	}

	return Definition{Name: name, Directory: dir, Path: path}, true
}

// Lookup returns the managed definition for name.
func (c *Catalog) Lookup(name string) (Definition, error) {
	if err := ValidateName(name); err != nil {
		return Definition{}, err
	}
	def, ok := c.inspect(name)
	if !ok {
		return Definition{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return def, nil
}

// IsNameAvailable reports whether no entry exists at <root>/<name>.
func (c *Catalog) IsNameAvailable(name string) (bool, error) {
	if err := ValidateName(name); err != nil {
		return false, err
	}
	dir := filepath.Join(c.root, name)
	_, err := os.Lstat(dir)
	switch {
	case err == nil:
		return false, nil
	case errors.Is(err, fs.ErrNotExist):
		return true, nil
	default:
		return false, &FilesystemError{Op: "stat", Path: dir, Err: err}
	}
}

// Create makes the stack directory and writes its definition file. The
// directory is created non-recursively, so an existing name yields ErrNameTaken.
func (c *Catalog) Create(name string, content []byte) (Definition, error) {
	if err := ValidateName(name); err != nil {
		return Definition{}, err
	}
	if err := os.MkdirAll(c.root, dirPerm); err != nil {
		return Definition{}, &FilesystemError{Op: "mkdir", Path: c.root, Err: err}
	}

	dir := filepath.Join(c.root, name)
	if err := os.Mkdir(dir, dirPerm); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return Definition{}, fmt.Errorf("%w: %s", ErrNameTaken, name)
		}
		return Definition{}, &FilesystemError{Op: "mkdir", Path: dir, Err: err}
	}

	path := filepath.Join(dir, c.filename)
	if err := os.WriteFile(path, content, filePerm); err != nil {
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			c.logger.Warn().Err(rmErr).Str("dir", dir).Msg("failed to remove partial stack directory")
		}
		return Definition{}, &FilesystemError{Op: "write", Path: path, Err: err}
	}

	c.logger.Info().Str("stack", name).Str("path", path).Msg("stack definition created")
	return Definition{Name: name, Directory: dir, Path: path}, nil
}

// ValidateName accepts only canonical compose project names: lowercase
// letters, digits, '_' and '-', starting with a letter or digit.
func ValidateName(name string) error {
	if err := compose.CheckProjectName(name); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidName, err)
	}
	return nil
}
