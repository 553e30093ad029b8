// internal/watch/stager.go
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"minivcs/internal/errors"

	"github.com/fsnotify/fsnotify"
	"github.com/zeebo/xxh3"
	"go.uber.org/zap"
)

// Area is the staging operation the watcher drives.
type Area interface {
	Stage(filePath string) (string, error)
}

// Stager re-stages watched files whenever their content changes on disk.
type Stager struct {
	area   Area
	logger *zap.Logger

	// OnStage is called after a file was staged, if set.
	OnStage func(path, name string)

	mu           sync.Mutex
	fingerprints map[string]uint64 // abs path -> xxh3 of last staged content
}

func NewStager(area Area, logger *zap.Logger) *Stager {
	return &Stager{
		area:         area,
		logger:       logger,
		fingerprints: make(map[string]uint64),
	}
}

// Watch stages each path once, then keeps restaging them on write and create
// events until ctx is done. Parent directories are watched so files replaced
// by rename are still picked up.
func (s *Stager) Watch(ctx context.Context, paths ...string) error {
	if len(paths) == 0 {
		return errors.ValidationError("nothing to watch", nil)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	defer watcher.Close()

	watched := make(map[string]bool, len(paths))
	dirs := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return fmt.Errorf("resolving %s: %w", p, err)
		}
		watched[abs] = true

		dir := filepath.Dir(abs)
		if !dirs[dir] {
			if err := watcher.Add(dir); err != nil {
				return fmt.Errorf("adding directory to watcher: %w", err)
			}
			dirs[dir] = true
		}
		s.restage(abs)
	}

	s.logger.Info("watching files", zap.Int("files", len(watched)))
	return s.watchLoop(ctx, watcher, watched)
}

// watchLoop processes filesystem events
func (s *Stager) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, watched map[string]bool) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if watched[event.Name] {
				s.handleFSEvent(event)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("watcher error", zap.Error(err))
		}
	}
}

func (s *Stager) handleFSEvent(event fsnotify.Event) {
	if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
		s.restage(event.Name)
	}
}

// restage stages path if its content differs from what was last staged.
func (s *Stager) restage(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		s.logger.Debug("skipping unreadable file", zap.String("path", path), zap.Error(err))
		return
	}
	sum := xxh3.Hash(data)

	s.mu.Lock()
	defer s.mu.Unlock()

	if last, ok := s.fingerprints[path]; ok && last == sum {
		return
	}

	name, err := s.area.Stage(path)
	switch {
	case errors.IsType(err, errors.ErrorTypeIgnored), errors.IsType(err, errors.ErrorTypeNotFound):
		s.logger.Debug("skipping file", zap.String("path", path), zap.Error(err))
		return
	case err != nil:
		s.logger.Warn("staging file", zap.String("path", path), zap.Error(err))
		return
	}

	s.fingerprints[path] = sum
	s.logger.Info("staged file", zap.String("path", path), zap.String("name", name))
	if s.OnStage != nil {
		s.OnStage(path, name)
	}
}
