// internal/diff/diff.go
package diff

import (
	"bytes"
	"fmt"
	"strings"
)

// Line represents a single line in a diff with its type and content
type Line struct {
	Type    LineType
	Content string
	OldNum  int // 1-based, 0 for additions
	NewNum  int // 1-based, 0 for deletions
}

// LineType indicates whether a line was added, removed, or is context
type LineType int

const (
	Context LineType = iota
	Addition
	Deletion
)

// DiffResult contains the complete diff information
type DiffResult struct {
	Hunks []Hunk
	Stats Stats
}

type Stats struct {
	Additions int
	Deletions int
	Changes   int
}

// Hunk represents a continuous section of changes. Starts follow unified
// diff conventions: 1-based, or the preceding line number for an empty range.
type Hunk struct {
	OldStart int
	OldLines int
	NewStart int
	NewLines int
	Lines    []Line
}

// Engine provides diffing capabilities
type Engine struct {
	contextLines int
}

// NewEngine creates a new diff engine with specified context lines
func NewEngine(contextLines int) *Engine {
	return &Engine{
		contextLines: max(0, contextLines),
	}
}

// edit is one step of the edit script, with the number of old and new lines
// consumed before it.
type edit struct {
	Line
	oldPos int
	newPos int
}

// Diff generates a line-by-line diff between two contents
func (e *Engine) Diff(oldContent, newContent []byte) (*DiffResult, error) {
	oldLines := splitLines(oldContent)
	newLines := splitLines(newContent)

	result := &DiffResult{}

	// Generate LCS (Longest Common Subsequence) matrix
	lcs := e.computeLCS(oldLines, newLines)

	// Walk the matrix into an edit script, then group it into hunks
	script := e.editScript(oldLines, newLines, lcs)
	result.Hunks = e.groupHunks(script)

	// Calculate stats
	for _, hunk := range result.Hunks {
		for _, line := range hunk.Lines {
			switch line.Type {
			case Addition:
				result.Stats.Additions++
			case Deletion:
				result.Stats.Deletions++
			}
		}
	}
	result.Stats.Changes = result.Stats.Additions + result.Stats.Deletions

	return result, nil
}

// splitLines splits content on newlines. Empty content has no lines and a
// trailing newline does not start a new one.
func splitLines(content []byte) []string {
	if len(content) == 0 {
		return nil
	}

	text := strings.TrimSuffix(string(content), "\n")
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}

// computeLCS creates a matrix where [i][j] is the length of the longest
// common subsequence of oldLines[i:] and newLines[j:]
func (e *Engine) computeLCS(oldLines, newLines []string) [][]int {
	matrix := make([][]int, len(oldLines)+1)
	for i := range matrix {
		matrix[i] = make([]int, len(newLines)+1)
	}

	for i := len(oldLines) - 1; i >= 0; i-- {
		for j := len(newLines) - 1; j >= 0; j-- {
			if oldLines[i] == newLines[j] {
				matrix[i][j] = matrix[i+1][j+1] + 1
			} else {
				matrix[i][j] = max(matrix[i+1][j], matrix[i][j+1])
			}
		}
	}

	return matrix
}

// editScript walks the LCS matrix front to back. Deletions come before
// additions within a changed region.
func (e *Engine) editScript(oldLines, newLines []string, lcs [][]int) []edit {
	script := make([]edit, 0, len(oldLines)+len(newLines))

	i, j := 0, 0
	for i < len(oldLines) || j < len(newLines) {
		switch {
		case i < len(oldLines) && j < len(newLines) && oldLines[i] == newLines[j]:
			script = append(script, edit{
				Line:   Line{Type: Context, Content: oldLines[i], OldNum: i + 1, NewNum: j + 1},
				oldPos: i,
				newPos: j,
			})
			i++
			j++
		case j == len(newLines) || (i < len(oldLines) && lcs[i+1][j] >= lcs[i][j+1]):
			script = append(script, edit{
				Line:   Line{Type: Deletion, Content: oldLines[i], OldNum: i + 1},
				oldPos: i,
				newPos: j,
			})
			i++
		default:
			script = append(script, edit{
				Line:   Line{Type: Addition, Content: newLines[j], NewNum: j + 1},
				oldPos: i,
				newPos: j,
			})
			j++
		}
	}

	return script
}

// groupHunks cuts the edit script into hunks with contextLines of context on
// each side. Changes separated by at most twice the context share a hunk.
func (e *Engine) groupHunks(script []edit) []Hunk {
	var hunks []Hunk
	n := e.contextLines

	k := 0
	for k < len(script) {
		// Skip to the next change
		for k < len(script) && script[k].Type == Context {
			k++
		}
		if k == len(script) {
			break
		}

		start := max(0, k-n)
		end := k
		for end < len(script) {
			if script[end].Type != Context {
				end++
				continue
			}
			run := end
			for run < len(script) && script[run].Type == Context {
				run++
			}
			if run == len(script) || run-end > 2*n {
				break
			}
			end = run
		}
		stop := min(len(script), end+n)

		hunks = append(hunks, newHunk(script[start:stop]))
		k = stop
	}

	return hunks
}

func newHunk(edits []edit) Hunk {
	hunk := Hunk{
		OldStart: edits[0].oldPos,
		NewStart: edits[0].newPos,
		Lines:    make([]Line, 0, len(edits)),
	}

	for _, ed := range edits {
		switch ed.Type {
		case Context:
			hunk.OldLines++
			hunk.NewLines++
		case Deletion:
			hunk.OldLines++
		case Addition:
			hunk.NewLines++
		}
		hunk.Lines = append(hunk.Lines, ed.Line)
	}

	if hunk.OldLines > 0 {
		hunk.OldStart++
	}
	if hunk.NewLines > 0 {
		hunk.NewStart++
	}
	return hunk
}

func formatRange(start, count int) string {
	if count == 1 {
		return fmt.Sprintf("%d", start)
	}
	return fmt.Sprintf("%d,%d", start, count)
}

// Header returns the hunk's "@@ -a,b +c,d @@" marker
func (h Hunk) Header() string {
	return fmt.Sprintf("@@ -%s +%s @@",
		formatRange(h.OldStart, h.OldLines),
		formatRange(h.NewStart, h.NewLines))
}

// Format returns a string representation of the diff
func (r *DiffResult) Format() string {
	var buf bytes.Buffer

	for _, hunk := range r.Hunks {
		buf.WriteString(hunk.Header())
		buf.WriteString("\n")

		for _, line := range hunk.Lines {
			switch line.Type {
			case Addition:
				buf.WriteString("+")
			case Deletion:
				buf.WriteString("-")
			case Context:
				buf.WriteString(" ")
			}
			buf.WriteString(line.Content)
			buf.WriteString("\n")
		}
	}

	return buf.String()
}

// Empty reports whether the two sides were identical.
func (r *DiffResult) Empty() bool {
	return len(r.Hunks) == 0
}
