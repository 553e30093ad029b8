// internal/commit/store.go
package commit

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"minivcs/internal/errors"
	"minivcs/internal/index"
	"minivcs/internal/layout"
	"minivcs/internal/staging"
	"minivcs/internal/validation"
	"minivcs/shared/types"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

const DefaultCacheSize = 128

// Store manages the commits of every branch under one metadata root.
type Store struct {
	root    layout.Root
	staging *staging.Area
	index   *index.Index
	cache   *lru.Cache[string, types.Snapshot] // immutable snapshots by branch/id
	logger  *zap.Logger
}

func NewStore(root layout.Root, area *staging.Area, idx *index.Index, cacheSize int, logger *zap.Logger) (*Store, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}

	cache, err := lru.New[string, types.Snapshot](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating snapshot cache: %w", err)
	}

	return &Store{
		root:    root,
		staging: area,
		index:   idx,
		cache:   cache,
		logger:  logger,
	}, nil
}

// Commit turns the staged files into a new commit on branch and returns its ID.
// Staging is only cleared once the commit directory and message are written.
func (s *Store) Commit(branch, message string) (string, error) {
	entries, err := s.staging.Entries()
	if err != nil {
		return "", fmt.Errorf("reading staging area: %w", err)
	}
	if len(entries) == 0 {
		return "", errors.EmptyStaging()
	}

	n, err := s.nextNumber(branch)
	if err != nil {
		return "", err
	}
	id, err := layout.FormatID(n)
	if err != nil {
		return "", fmt.Errorf("allocating commit id on %s: %w", branch, err)
	}

	if err := os.MkdirAll(s.root.Branch(branch), layout.DirPerm); err != nil {
		return "", fmt.Errorf("creating branch directory: %w", err)
	}

	commitDir := s.root.Commit(branch, id)
	if err := os.Mkdir(commitDir, layout.DirPerm); err != nil {
		return "", fmt.Errorf("creating commit directory: %w", err)
	}

	if err := writeCommit(commitDir, entries, message); err != nil {
		// Leave staging intact so the commit can be retried
		if rmErr := os.RemoveAll(commitDir); rmErr != nil {
			s.logger.Error("removing partial commit",
				zap.String("dir", commitDir),
				zap.Error(rmErr))
		}
		return "", err
	}

	// A stale counter is repaired by nextNumber, so this is not fatal
	if err := s.index.RaiseCounter(branch, n+1); err != nil {
		s.logger.Warn("updating commit counter",
			zap.String("branch", branch),
			zap.Error(err))
	}

	if err := s.staging.Clear(); err != nil {
		return id, fmt.Errorf("clearing staging area after commit %s: %w", id, err)
	}

	s.logger.Info("created commit",
		zap.String("branch", branch),
		zap.String("id", id),
		zap.Int("files", len(entries)))

	return id, nil
}

func writeCommit(dir string, entries types.Snapshot, message string) error {
	for _, name := range entries.Names() {
		if err := os.WriteFile(filepath.Join(dir, name), entries[name], layout.FilePerm); err != nil {
			return fmt.Errorf("writing %s: %w", name, err)
		}
	}

	// The message goes last, it marks the commit complete
	if err := os.WriteFile(filepath.Join(dir, layout.MessageFile), []byte(message), layout.FilePerm); err != nil {
		return fmt.Errorf("writing commit message: %w", err)
	}
	return nil
}

// nextNumber is the larger of the persisted counter and one past the highest
// existing commit, so an ID is never handed out twice.
func (s *Store) nextNumber(branch string) (int, error) {
	next, err := s.index.NextCommit(branch)
	if err != nil {
		return 0, err
	}

	// Incomplete commit directories still hold their ID
	ids, err := s.dirs(branch)
	if err != nil {
		return 0, err
	}
	if len(ids) > 0 {
		highest, err := strconv.Atoi(ids[len(ids)-1])
		if err != nil {
			return 0, fmt.Errorf("parsing commit id %s: %w", ids[len(ids)-1], err)
		}
		next = max(next, highest+1)
	}

	return next, nil
}

// List returns the commit IDs of branch in ascending order. A branch without
// commits, or without a directory at all, has an empty list. Directories
// without a message record are left over from an interrupted commit and are
// skipped.
func (s *Store) List(branch string) ([]string, error) {
	dirs, err := s.dirs(branch)
	if err != nil {
		return nil, err
	}

	ids := dirs[:0]
	for _, id := range dirs {
		if !s.complete(branch, id) {
			s.logger.Warn("skipping incomplete commit", zap.String("branch", branch), zap.String("commit", id))
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// dirs returns every 4-digit commit directory of branch in ascending order,
// complete or not.
func (s *Store) dirs(branch string) ([]string, error) {
	dir := s.root.Branch(branch)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading branch %s: %w", branch, err)
	}

	var ids []string
	for _, e := range entries {
		if !validation.IsCommitID(e.Name()) {
			continue
		}
		// Stat follows links left behind by older merges
		info, err := os.Stat(filepath.Join(dir, e.Name()))
		if err != nil || !info.IsDir() {
			continue
		}
		ids = append(ids, e.Name())
	}

	slices.Sort(ids)
	return ids, nil
}

// complete reports whether the commit directory has its message record.
func (s *Store) complete(branch, id string) bool {
	info, err := os.Stat(filepath.Join(s.root.Commit(branch, id), layout.MessageFile))
	return err == nil && info.Mode().IsRegular()
}

// Exists reports whether branch has a complete commit with the given ID.
func (s *Store) Exists(branch, id string) bool {
	return validation.IsCommitID(id) && s.complete(branch, id)
}

// Message returns the commit message exactly as it was stored.
func (s *Store) Message(branch, id string) (string, error) {
	if !s.Exists(branch, id) {
		return "", errors.CommitNotFound(branch, id)
	}

	data, err := os.ReadFile(filepath.Join(s.root.Commit(branch, id), layout.MessageFile))
	if err != nil {
		return "", fmt.Errorf("reading message of %s: %w", id, err)
	}
	return string(data), nil
}

// Log lists the commits of branch, most recent first.
func (s *Store) Log(branch string) ([]types.LogEntry, error) {
	ids, err := s.List(branch)
	if err != nil {
		return nil, err
	}

	log := make([]types.LogEntry, 0, len(ids))
	for _, id := range slices.Backward(ids) {
		message, err := s.Message(branch, id)
		if err != nil {
			return nil, err
		}
		log = append(log, types.LogEntry{
			ID:      id,
			Message: strings.TrimSpace(message),
		})
	}
	return log, nil
}

// Snapshot returns the files of a commit, without its message record.
func (s *Store) Snapshot(branch, id string) (types.Snapshot, error) {
	key := branch + "/" + id
	if snap, ok := s.cache.Get(key); ok {
		return snap.Clone(), nil
	}

	if !s.Exists(branch, id) {
		return nil, errors.CommitNotFound(branch, id)
	}

	dir := s.root.Commit(branch, id)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading commit %s: %w", id, err)
	}

	snap := make(types.Snapshot, len(entries))
	for _, e := range entries {
		if e.IsDir() || e.Name() == layout.MessageFile {
			continue
		}
		content, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading %s in commit %s: %w", e.Name(), id, err)
		}
		snap[e.Name()] = content
	}

	s.cache.Add(key, snap)
	return snap.Clone(), nil
}
