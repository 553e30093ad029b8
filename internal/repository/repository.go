// internal/repository/repository.go
package repository

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"minivcs/internal/branch"
	"minivcs/internal/commit"
	"minivcs/internal/config"
	"minivcs/internal/diff"
	"minivcs/internal/errors"
	"minivcs/internal/export"
	"minivcs/internal/ignore"
	"minivcs/internal/index"
	"minivcs/internal/layout"
	"minivcs/internal/merge"
	"minivcs/internal/staging"
	"minivcs/internal/validation"
	"minivcs/internal/watch"
	"minivcs/shared/types"
	"minivcs/shared/utils"

	"go.uber.org/zap"
)

// Options tune a repository handle.
type Options struct {
	ContextLines int
	CacheSize    int
	BundleLevel  int
}

// DefaultOptions mirrors the configuration defaults.
func DefaultOptions() Options {
	return Options{
		ContextLines: config.DefaultContextLines,
		CacheSize:    commit.DefaultCacheSize,
		BundleLevel:  config.DefaultBundleLevel,
	}
}

// OptionsFromConfig picks the repository settings out of cfg.
func OptionsFromConfig(cfg *config.Config) Options {
	opts := DefaultOptions()
	opts.ContextLines = cfg.Diff.Context
	opts.BundleLevel = cfg.Bundle.Level
	return opts
}

// Repository is an open handle on one metadata root. Every operation goes
// through it; nothing is kept in package state.
type Repository struct {
	root     layout.Root
	logger   *zap.Logger
	index    *index.Index
	staging  *staging.Area
	matcher  *ignore.Matcher
	commits  *commit.Store
	branches *branch.Registry
	merger   *merge.Engine
	differ   *diff.Engine
	exporter *export.Exporter
}

// Init creates a new repository at root and opens it.
func Init(root string, opts Options, logger *zap.Logger) (*Repository, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("getting absolute path for root %s: %w", root, err)
	}
	if utils.Exists(absRoot) {
		return nil, errors.AlreadyInitialized(absRoot)
	}

	r := layout.Root(absRoot)
	repo, err := initialize(r, opts, logger)
	if err != nil {
		if rmErr := os.RemoveAll(absRoot); rmErr != nil {
			logger.Error("removing partial repository", zap.String("root", absRoot), zap.Error(rmErr))
		}
		return nil, err
	}

	rec, err := repo.Info()
	if err != nil {
		repo.Close()
		return nil, err
	}

	logger.Info("initialized repository", zap.String("root", absRoot), zap.String("id", rec.ID))
	return repo, nil
}

func initialize(r layout.Root, opts Options, logger *zap.Logger) (*Repository, error) {
	if err := os.MkdirAll(r.Branch(layout.DefaultBranch), layout.DirPerm); err != nil {
		return nil, fmt.Errorf("creating directory %s: %w", r.Branches(), err)
	}
	if err := os.WriteFile(r.Head(), []byte(layout.DefaultBranch), layout.FilePerm); err != nil {
		return nil, fmt.Errorf("writing HEAD: %w", err)
	}
	if err := os.WriteFile(r.Ignore(), nil, layout.FilePerm); err != nil {
		return nil, fmt.Errorf("writing ignore file: %w", err)
	}

	repo, err := open(r, opts, logger)
	if err != nil {
		return nil, err
	}
	if _, err := repo.index.InitRepository(); err != nil {
		repo.Close()
		return nil, err
	}
	return repo, nil
}

// Open opens an existing repository at root.
func Open(root string, opts Options, logger *zap.Logger) (*Repository, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("getting absolute path for root %s: %w", root, err)
	}
	if !utils.IsDir(absRoot) {
		return nil, errors.NotInitialized(absRoot)
	}
	return open(layout.Root(absRoot), opts, logger)
}

func open(root layout.Root, opts Options, logger *zap.Logger) (*Repository, error) {
	idx, err := index.Open(root.Index(), logger)
	if err != nil {
		return nil, err
	}

	matcher := ignore.NewMatcher(root.Ignore())
	area := staging.New(root.Staging(), matcher, logger)

	commits, err := commit.NewStore(root, area, idx, opts.CacheSize, logger)
	if err != nil {
		idx.Close()
		return nil, err
	}

	exporter, err := export.NewExporter(root, idx, opts.BundleLevel, logger)
	if err != nil {
		idx.Close()
		return nil, err
	}

	branches := branch.NewRegistry(root, commits, idx, logger)

	return &Repository{
		root:     root,
		logger:   logger,
		index:    idx,
		staging:  area,
		matcher:  matcher,
		commits:  commits,
		branches: branches,
		merger:   merge.NewEngine(root, branches, commits, idx, logger),
		differ:   diff.NewEngine(opts.ContextLines),
		exporter: exporter,
	}, nil
}

// FindRoot walks up from startDir looking for a directory named dirName and
// returns its path.
func FindRoot(startDir, dirName string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		candidate := filepath.Join(dir, dirName)
		if utils.IsDir(candidate) {
			return candidate, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", errors.NotInitialized(filepath.Join(startDir, dirName))
}

// Close releases the index database.
func (r *Repository) Close() error {
	return r.index.Close()
}

// Root returns the absolute path of the metadata root.
func (r *Repository) Root() string {
	return r.root.Path()
}

// Add stages a file and returns the basename it was staged under.
func (r *Repository) Add(path string) (string, error) {
	name, err := r.staging.Stage(path)
	if err != nil {
		return "", err
	}
	r.logger.Debug("staged file", zap.String("path", path), zap.String("name", name))
	return name, nil
}

// Staged lists the basenames waiting for the next commit.
func (r *Repository) Staged() ([]string, error) {
	return r.staging.Names()
}

// Commit records the staged files on the current branch.
func (r *Repository) Commit(message string) (string, error) {
	current, err := r.branches.Current()
	if err != nil {
		return "", err
	}
	return r.commits.Commit(current, message)
}

// Log lists the current branch's commits, newest first.
func (r *Repository) Log() ([]types.LogEntry, error) {
	current, err := r.branches.Current()
	if err != nil {
		return nil, err
	}
	return r.commits.Log(current)
}

// Snapshot returns the files of a commit on the current branch.
func (r *Repository) Snapshot(id string) (types.Snapshot, error) {
	current, err := r.branches.Current()
	if err != nil {
		return nil, err
	}
	return r.commits.Snapshot(current, id)
}

// Diff compares two commits of the current branch. Malformed IDs are
// rejected before anything is read.
func (r *Repository) Diff(fromID, toID string) (*diff.Report, error) {
	for _, id := range []string{fromID, toID} {
		if err := validation.ValidateCommitID(id); err != nil {
			return nil, err
		}
	}

	current, err := r.branches.Current()
	if err != nil {
		return nil, err
	}
	return r.differ.Commits(r.commits, current, fromID, toID)
}

func (r *Repository) CreateBranch(name string) error {
	return r.branches.Create(name)
}

func (r *Repository) Checkout(name string) error {
	return r.branches.Checkout(name)
}

func (r *Repository) CurrentBranch() (string, error) {
	return r.branches.Current()
}

func (r *Repository) Branches() ([]string, error) {
	return r.branches.List()
}

// Merge folds target's missing commits into the current branch.
func (r *Repository) Merge(target string) ([]string, error) {
	current, err := r.branches.Current()
	if err != nil {
		return nil, err
	}
	return r.merger.Merge(current, target)
}

// Ignore appends a suffix pattern to the ignore list.
func (r *Repository) Ignore(pattern string) error {
	return r.matcher.Add(pattern)
}

func (r *Repository) Clone(dest string) error {
	return r.exporter.Clone(dest)
}

func (r *Repository) Bundle(w io.Writer) error {
	return r.exporter.Bundle(w)
}

// Unbundle restores a bundle into a new repository at dest.
func Unbundle(rd io.Reader, dest string, opts Options, logger *zap.Logger) error {
	exporter, err := export.NewExporter("", nil, opts.BundleLevel, logger)
	if err != nil {
		return err
	}
	return exporter.Unbundle(rd, dest)
}

// Info returns the repository record written at init.
func (r *Repository) Info() (*index.Repository, error) {
	rec, err := r.index.Repository()
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, errors.NotInitialized(r.root.Path())
	}
	return rec, nil
}

// Origin returns where a merged commit came from, or nil for commits made
// on the branch itself.
func (r *Repository) Origin(branchName, id string) (*index.Origin, error) {
	if !r.commits.Exists(branchName, id) {
		return nil, errors.CommitNotFound(branchName, id)
	}
	return r.index.Origin(branchName, id)
}

// Watch keeps restaging paths as they change until ctx is done.
func (r *Repository) Watch(ctx context.Context, onStage func(path, name string), paths ...string) error {
	stager := watch.NewStager(r.staging, r.logger)
	stager.OnStage = onStage
	return stager.Watch(ctx, paths...)
}
