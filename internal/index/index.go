// internal/index/index.go
package index

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"minivcs/internal/logging"
	"minivcs/internal/storage"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const formatVersion = "1"

// Counter is the next commit number to hand out on a branch.
type Counter struct {
	Branch string `json:"branch"`
	Next   int    `json:"next"`
}

func (c *Counter) GetID() string { return c.Branch }

// Origin records which branch a merged commit was copied from.
type Origin struct {
	Branch       string    `json:"branch"`
	CommitID     string    `json:"commit_id"`
	SourceBranch string    `json:"source_branch"`
	MergedAt     time.Time `json:"merged_at"`
}

func (o *Origin) GetID() string { return o.Branch + ":" + o.CommitID }

// Repository identifies one repository. Clones keep the identity of their
// source.
type Repository struct {
	ID        string    `json:"id"`
	Version   string    `json:"version"`
	CreatedAt time.Time `json:"created_at"`
}

func (r *Repository) GetID() string { return "self" }

// Index holds the repository metadata that does not live in the file tree.
type Index struct {
	db       *badger.DB
	counters *storage.BadgerStore
	origins  *storage.BadgerStore
	repo     *storage.BadgerStore
	logger   *zap.Logger
}

// getDBOptions returns options sized for a small metadata database.
func getDBOptions(dir string, logger *zap.Logger) badger.Options {
	return badger.DefaultOptions(dir).
		WithNumVersionsToKeep(1).
		WithMemTableSize(8 << 20).
		WithValueLogFileSize(16 << 20).
		WithNumCompactors(2).
		WithLoggingLevel(badger.WARNING).
		WithLogger(logging.NewBadgerLogger(logger))
}

// Open opens (creating if needed) the index stored in dir.
func Open(dir string, logger *zap.Logger) (*Index, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	db, err := badger.Open(getDBOptions(dir, logger))
	if err != nil {
		return nil, fmt.Errorf("opening index: %w", err)
	}

	return newIndex(db, logger), nil
}

func newIndex(db *badger.DB, logger *zap.Logger) *Index {
	return &Index{
		db:       db,
		counters: storage.NewBadgerStore(db, "counter"),
		origins:  storage.NewBadgerStore(db, "origin"),
		repo:     storage.NewBadgerStore(db, "repository"),
		logger:   logger,
	}
}

func (x *Index) Close() error {
	if x == nil || x.db == nil {
		return nil
	}
	if err := x.db.Close(); err != nil {
		return fmt.Errorf("closing index: %w", err)
	}
	return nil
}

// InitRepository writes a fresh repository record.
func (x *Index) InitRepository() (*Repository, error) {
	rec := &Repository{
		ID:        uuid.New().String(),
		Version:   formatVersion,
		CreatedAt: time.Now().UTC(),
	}
	if err := x.repo.Create(rec); err != nil {
		return nil, fmt.Errorf("creating repository record: %w", err)
	}
	return rec, nil
}

// Repository returns the repository record, or nil if none was written.
func (x *Index) Repository() (*Repository, error) {
	var rec Repository
	if err := x.repo.Get("self", &rec); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting repository record: %w", err)
	}
	return &rec, nil
}

// NextCommit returns the stored counter for branch, 0 if none.
func (x *Index) NextCommit(branch string) (int, error) {
	var c Counter
	if err := x.counters.Get(branch, &c); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("getting counter for %s: %w", branch, err)
	}
	return c.Next, nil
}

// RaiseCounter moves the counter for branch up to next. It never lowers it.
func (x *Index) RaiseCounter(branch string, next int) error {
	c := Counter{Branch: branch}
	err := x.counters.Modify(branch, &c, func() error {
		if next > c.Next {
			c.Next = next
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("updating counter for %s: %w", branch, err)
	}
	return nil
}

// RecordOrigin stores provenance for a merged commit.
func (x *Index) RecordOrigin(o Origin) error {
	if o.MergedAt.IsZero() {
		o.MergedAt = time.Now().UTC()
	}
	if err := x.origins.Put(&o); err != nil {
		return fmt.Errorf("recording origin of %s/%s: %w", o.Branch, o.CommitID, err)
	}
	return nil
}

// Origin returns the provenance of a commit, or nil if it was not merged in.
func (x *Index) Origin(branch, id string) (*Origin, error) {
	var o Origin
	if err := x.origins.Get(branch+":"+id, &o); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &o, nil
}

// Origins lists provenance records for a branch in commit order.
func (x *Index) Origins(branch string) ([]Origin, error) {
	var list []Origin
	if err := x.origins.List(branch+":", &list); err != nil {
		return nil, err
	}
	return list, nil
}

// CopyBranch gives a new branch the counter and provenance of src.
func (x *Index) CopyBranch(src, dst string) error {
	next, err := x.NextCommit(src)
	if err != nil {
		return err
	}
	if err := x.RaiseCounter(dst, next); err != nil {
		return err
	}

	origins, err := x.Origins(src)
	if err != nil {
		return err
	}
	for _, o := range origins {
		o.Branch = dst
		if err := x.RecordOrigin(o); err != nil {
			return err
		}
	}
	return nil
}

// Backup writes a full badger backup stream to w.
func (x *Index) Backup(w io.Writer) error {
	if _, err := x.db.Backup(w, 0); err != nil {
		return fmt.Errorf("backing up index: %w", err)
	}
	return nil
}

// Restore creates an index in dir from a backup stream.
func Restore(dir string, r io.Reader, logger *zap.Logger) error {
	x, err := Open(dir, logger)
	if err != nil {
		return err
	}

	if err := x.db.Load(r, 256); err != nil {
		x.Close()
		return fmt.Errorf("loading index backup: %w", err)
	}

	x.logger.Debug("restored index", zap.String("dir", dir))
	return x.Close()
}
