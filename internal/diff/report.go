package diff

import (
	"bytes"
	"fmt"
	"slices"

	"minivcs/shared/types"
)

// Snapshotter loads the files of a commit.
type Snapshotter interface {
	Snapshot(branch, id string) (types.Snapshot, error)
}

// FileDiff is the diff of one basename between two snapshots.
type FileDiff struct {
	Name   string
	From   string // label of the old side, e.g. "0000/a.txt"
	To     string
	Result *DiffResult
}

// Report collects the per-file diffs between two snapshots.
type Report struct {
	Files []FileDiff
	Stats Stats
}

// Commits diffs two commits of the same branch. Both commits must exist
// before any comparison is made.
func (e *Engine) Commits(src Snapshotter, branch, fromID, toID string) (*Report, error) {
	from, err := src.Snapshot(branch, fromID)
	if err != nil {
		return nil, err
	}
	to, err := src.Snapshot(branch, toID)
	if err != nil {
		return nil, err
	}
	return e.Snapshots(fromID, toID, from, to)
}

// Snapshots diffs every basename present in either snapshot, in sorted
// order. A file missing on one side is compared against empty content.
func (e *Engine) Snapshots(fromLabel, toLabel string, from, to types.Snapshot) (*Report, error) {
	names := from.Names()
	for _, name := range to.Names() {
		if _, ok := from[name]; !ok {
			names = append(names, name)
		}
	}
	slices.Sort(names)

	report := &Report{}
	for _, name := range names {
		result, err := e.Diff(from[name], to[name])
		if err != nil {
			return nil, fmt.Errorf("diffing %s: %w", name, err)
		}
		if result.Empty() {
			continue
		}

		report.Files = append(report.Files, FileDiff{
			Name:   name,
			From:   fromLabel + "/" + name,
			To:     toLabel + "/" + name,
			Result: result,
		})
		report.Stats.Additions += result.Stats.Additions
		report.Stats.Deletions += result.Stats.Deletions
		report.Stats.Changes += result.Stats.Changes
	}

	return report, nil
}

// Empty reports whether the snapshots had identical content.
func (r *Report) Empty() bool {
	return len(r.Files) == 0
}

// Format renders the report as unified diff text.
func (r *Report) Format() string {
	var buf bytes.Buffer
	for _, f := range r.Files {
		fmt.Fprintf(&buf, "--- %s\n+++ %s\n", f.From, f.To)
		buf.WriteString(f.Result.Format())
	}
	return buf.String()
}
