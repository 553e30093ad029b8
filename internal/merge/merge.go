// internal/merge/merge.go
package merge

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"minivcs/internal/commit"
	"minivcs/internal/errors"
	"minivcs/internal/index"
	"minivcs/internal/layout"
	"minivcs/shared/utils"

	"go.uber.org/zap"
)

// BranchChecker reports whether a branch exists.
type BranchChecker interface {
	Exists(name string) bool
}

// Engine folds the commits of one branch into another by commit ID.
type Engine struct {
	root     layout.Root
	branches BranchChecker
	commits  *commit.Store
	index    *index.Index
	logger   *zap.Logger
}

func NewEngine(root layout.Root, branches BranchChecker, commits *commit.Store, idx *index.Index, logger *zap.Logger) *Engine {
	return &Engine{
		root:     root,
		branches: branches,
		commits:  commits,
		index:    idx,
		logger:   logger,
	}
}

// Merge copies every commit of target whose ID is missing from current into
// current, keeping its ID, and returns the merged IDs in ascending order.
// Commits present on both sides are left alone even if their content differs.
func (e *Engine) Merge(current, target string) ([]string, error) {
	if !e.branches.Exists(target) {
		return nil, errors.BranchNotFound(target)
	}
	if current == target {
		return nil, nil
	}

	ids, err := e.commits.List(target)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(e.root.Branch(current), layout.DirPerm); err != nil {
		return nil, fmt.Errorf("creating branch directory: %w", err)
	}

	var merged []string
	highest := -1
	for _, id := range ids {
		if e.commits.Exists(current, id) {
			continue
		}

		// Replace whatever an interrupted commit left under this ID
		dst := e.root.Commit(current, id)
		if err := os.RemoveAll(dst); err != nil {
			return merged, fmt.Errorf("clearing incomplete commit %s: %w", id, err)
		}
		if err := utils.CopyTree(e.root.Commit(target, id), dst); err != nil {
			if rmErr := os.RemoveAll(dst); rmErr != nil {
				e.logger.Error("removing partial commit", zap.String("commit", id), zap.Error(rmErr))
			}
			return merged, fmt.Errorf("copying commit %s from %s: %w", id, target, err)
		}

		if err := e.index.RecordOrigin(index.Origin{
			Branch:       current,
			CommitID:     id,
			SourceBranch: target,
			MergedAt:     time.Now().UTC(),
		}); err != nil {
			e.logger.Warn("recording merge origin", zap.String("commit", id), zap.Error(err))
		}

		n, _ := strconv.Atoi(id)
		highest = max(highest, n)
		merged = append(merged, id)
	}

	if highest >= 0 {
		if err := e.index.RaiseCounter(current, highest+1); err != nil {
			e.logger.Warn("raising commit counter", zap.String("branch", current), zap.Error(err))
		}
	}

	e.logger.Info("merged branch",
		zap.String("branch", current),
		zap.String("from", target),
		zap.Int("commits", len(merged)))

	return merged, nil
}
