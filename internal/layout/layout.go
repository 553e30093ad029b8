// Package layout names the files and directories inside a metadata root.
package layout

import (
	"fmt"
	"path/filepath"

	"minivcs/internal/errors"
)

const (
	HeadFile      = "HEAD"
	IgnoreFile    = "ignore"
	BranchesDir   = "branches"
	StagingDir    = "staging"
	IndexDir      = "index"
	MessageFile   = "message"
	DefaultBranch = "main"

	DirPerm  = 0755
	FilePerm = 0644

	// IDWidth is the number of digits in a commit ID.
	IDWidth = 4
	MaxID   = 9999
)

// Root resolves paths inside one metadata root.
type Root string

func (r Root) Path() string { return string(r) }
func (r Root) Head() string { return filepath.Join(string(r), HeadFile) }
func (r Root) Ignore() string { return filepath.Join(string(r), IgnoreFile) }
func (r Root) Branches() string { return filepath.Join(string(r), BranchesDir) }
func (r Root) Staging() string { return filepath.Join(string(r), StagingDir) }
func (r Root) Index() string { return filepath.Join(string(r), IndexDir) }
func (r Root) Branch(name string) string {
	return filepath.Join(string(r), BranchesDir, name)
}

func (r Root) Commit(branch, id string) string {
	return filepath.Join(string(r), BranchesDir, branch, id)
}

// FormatID renders n as a zero padded commit ID.
func FormatID(n int) (string, error) {
	if n < 0 || n > MaxID {
		return "", errors.ValidationError(fmt.Sprintf("commit number %d out of range 0..%d", n, MaxID), n)
	}
	return fmt.Sprintf("%0*d", IDWidth, n), nil
}
