package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

const watchMask = fsnotify.Create | fsnotify.Remove | fsnotify.Rename

// Watch signals on the returned channel whenever a stack directory or a
// definition file appears, disappears, or is renamed. Signals coalesce while
// the receiver is busy. The channel closes when ctx is done.
func (c *Catalog) Watch(ctx context.Context) (<-chan struct{}, error) {
	if err := os.MkdirAll(c.root, dirPerm); err != nil {
		return nil, &FilesystemError{Op: "mkdir", Path: c.root, Err: err}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(c.root); err != nil {
		_ = watcher.Close()
		return nil, &FilesystemError{Op: "watch", Path: c.root, Err: err}
	}

	entries, err := os.ReadDir(c.root)
	if err == nil {
		for _, entry := range entries {
			if entry.IsDir() {
				c.addWatch(watcher, filepath.Join(c.root, entry.Name()))
			}
		}
	}

	signals := make(chan struct{}, 1)
	go c.watchLoop(ctx, watcher, signals)
	return signals, nil
}

func (c *Catalog) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, signals chan<- struct{}) {
	defer close(signals)
	defer watcher.Close()

	c.logger.Debug().Str("root", c.root).Msg("watching catalog root")

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !c.relevant(event) {
				continue
			}
			if event.Has(fsnotify.Create) && filepath.Dir(event.Name) == c.root {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					c.addWatch(watcher, event.Name)
				}
			}
			select {
			case signals <- struct{}{}:
			default:
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			c.logger.Warn().Err(err).Msg("catalog watcher error")
		case <-ctx.Done():
			c.logger.Debug().Msg("catalog watcher stopping")
			return
		}
	}
}

// relevant keeps structural events on the root and definition file events
// inside stack directories.
func (c *Catalog) relevant(event fsnotify.Event) bool {
	if event.Op&watchMask == 0 {
		return false
	}
	if filepath.Dir(event.Name) == c.root {
		return true
	}
	return filepath.Base(event.Name) == c.filename
}

func (c *Catalog) addWatch(watcher *fsnotify.Watcher, dir string) {
	if err := watcher.Add(dir); err != nil && !errors.Is(err, os.ErrNotExist) {
		c.logger.Debug().Err(err).Str("dir", dir).Msg("failed to watch stack directory")
	}
}
