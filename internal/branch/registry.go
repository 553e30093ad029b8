// internal/branch/registry.go
package branch

import (
	"fmt"
	"os"
	"slices"

	"minivcs/internal/commit"
	"minivcs/internal/errors"
	"minivcs/internal/index"
	"minivcs/internal/layout"
	"minivcs/internal/validation"
	"minivcs/shared/utils"

	"go.uber.org/zap"
)

// Registry owns the branch directories and the HEAD pointer.
type Registry struct {
	root    layout.Root
	commits *commit.Store
	index   *index.Index
	logger  *zap.Logger
}

func NewRegistry(root layout.Root, commits *commit.Store, idx *index.Index, logger *zap.Logger) *Registry {
	return &Registry{
		root:    root,
		commits: commits,
		index:   idx,
		logger:  logger,
	}
}

// Current returns the branch named by HEAD, or the default branch when HEAD
// is missing or blank.
func (r *Registry) Current() (string, error) {
	name, err := utils.ReadText(r.root.Head())
	if err != nil {
		if os.IsNotExist(err) {
			return layout.DefaultBranch, nil
		}
		return "", fmt.Errorf("reading HEAD: %w", err)
	}
	if name == "" {
		return layout.DefaultBranch, nil
	}
	return name, nil
}

// Exists reports whether a branch directory with this name exists.
func (r *Registry) Exists(name string) bool {
	if validation.ValidateBranchName(name) != nil {
		return false
	}
	return utils.IsDir(r.root.Branch(name))
}

// List returns all branch names in lexicographic order.
func (r *Registry) List() ([]string, error) {
	entries, err := os.ReadDir(r.root.Branches())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading branches: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	slices.Sort(names)
	return names, nil
}

// Create makes a new branch holding a full copy of the current branch's
// history. Commit IDs are preserved and the two branches share nothing on
// disk afterwards.
func (r *Registry) Create(name string) error {
	if err := validation.ValidateBranchName(name); err != nil {
		return err
	}
	if utils.Exists(r.root.Branch(name)) {
		return errors.BranchAlreadyExists(name)
	}

	current, err := r.Current()
	if err != nil {
		return err
	}

	ids, err := r.commits.List(current)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(r.root.Branches(), layout.DirPerm); err != nil {
		return fmt.Errorf("creating branches directory: %w", err)
	}

	dir := r.root.Branch(name)
	if err := os.Mkdir(dir, layout.DirPerm); err != nil {
		return fmt.Errorf("creating branch directory: %w", err)
	}

	// One recursive copy per commit
	for _, id := range ids {
		if err := utils.CopyTree(r.root.Commit(current, id), r.root.Commit(name, id)); err != nil {
			if rmErr := os.RemoveAll(dir); rmErr != nil {
				r.logger.Error("removing partial branch", zap.String("branch", name), zap.Error(rmErr))
			}
			return fmt.Errorf("copying commit %s to %s: %w", id, name, err)
		}
	}

	if err := r.index.CopyBranch(current, name); err != nil {
		return fmt.Errorf("copying branch metadata: %w", err)
	}

	r.logger.Info("created branch",
		zap.String("branch", name),
		zap.String("from", current),
		zap.Int("commits", len(ids)))

	return nil
}

// Checkout points HEAD at an existing branch. Working files are not touched.
func (r *Registry) Checkout(name string) error {
	if !r.Exists(name) {
		return errors.BranchNotFound(name)
	}

	if err := os.WriteFile(r.root.Head(), []byte(name), layout.FilePerm); err != nil {
		return fmt.Errorf("writing HEAD: %w", err)
	}

	r.logger.Info("switched branch", zap.String("branch", name))
	return nil
}
