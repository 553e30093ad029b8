// internal/staging/staging.go
package staging

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"minivcs/internal/errors"
	"minivcs/internal/ignore"
	"minivcs/internal/layout"
	"minivcs/internal/validation"
	"minivcs/shared/types"

	"go.uber.org/zap"
	"golang.org/x/exp/mmap"
)

// Area is the on-disk holding area for the next commit, one file per basename.
type Area struct {
	dir     string
	matcher *ignore.Matcher
	logger  *zap.Logger
}

func New(dir string, matcher *ignore.Matcher, logger *zap.Logger) *Area {
	return &Area{
		dir:     dir,
		matcher: matcher,
		logger:  logger,
	}
}

// Stage copies filePath into the staging area under its basename, replacing
// any earlier entry with the same basename.
func (a *Area) Stage(filePath string) (string, error) {
	info, err := os.Stat(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", errors.NotFound(filePath)
		}
		return "", fmt.Errorf("checking %s: %w", filePath, err)
	}
	if info.IsDir() {
		return "", errors.NotFound(filePath)
	}

	ignored, err := a.matcher.Match(filePath)
	if err != nil {
		return "", err
	}
	if ignored {
		return "", errors.Ignored(filePath)
	}

	name := filepath.Base(filePath)
	if err := validation.ValidateStagedName(name); err != nil {
		return "", err
	}

	content, err := readFile(filePath)
	if err != nil {
		return "", err
	}

	// Created lazily on first use
	if err := os.MkdirAll(a.dir, layout.DirPerm); err != nil {
		return "", fmt.Errorf("creating staging directory: %w", err)
	}

	if err := os.WriteFile(filepath.Join(a.dir, name), content, layout.FilePerm); err != nil {
		return "", fmt.Errorf("writing staged file: %w", err)
	}

	a.logger.Debug("staged file",
		zap.String("path", filePath),
		zap.String("name", name),
		zap.Int("size", len(content)))

	return name, nil
}

// readFile reads the whole file through a read-only memory map.
func readFile(path string) ([]byte, error) {
	r, err := mmap.Open(path)
	if err != nil {
		return nil, fmt.Errorf("mapping %s: %w", path, err)
	}
	defer r.Close()

	content := make([]byte, r.Len())
	if len(content) == 0 {
		return content, nil
	}
	if _, err := r.ReadAt(content, 0); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return content, nil
}

// Names returns the staged basenames in lexicographic order.
func (a *Area) Names() ([]string, error) {
	entries, err := os.ReadDir(a.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading staging directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	slices.Sort(names)
	return names, nil
}

// Empty reports whether nothing is staged.
func (a *Area) Empty() (bool, error) {
	names, err := a.Names()
	if err != nil {
		return false, err
	}
	return len(names) == 0, nil
}

// Entries returns the full staged mapping without modifying it.
func (a *Area) Entries() (types.Snapshot, error) {
	names, err := a.Names()
	if err != nil {
		return nil, err
	}

	snap := make(types.Snapshot, len(names))
	for _, name := range names {
		content, err := os.ReadFile(filepath.Join(a.dir, name))
		if err != nil {
			return nil, fmt.Errorf("reading staged file %s: %w", name, err)
		}
		snap[name] = content
	}
	return snap, nil
}

// Clear removes every staged entry. Callers must only clear once the commit
// that consumed the entries is fully written.
func (a *Area) Clear() error {
	names, err := a.Names()
	if err != nil {
		return err
	}

	for _, name := range names {
		if err := os.Remove(filepath.Join(a.dir, name)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing staged file %s: %w", name, err)
		}
	}

	a.logger.Debug("cleared staging area", zap.Int("count", len(names)))
	return nil
}
