package validation

import (
	"strings"

	"minivcs/internal/errors"
	"minivcs/internal/layout"
)

// ValidateBranchName rejects names that cannot be used as a directory under
// branches/.
func ValidateBranchName(name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.ValidationError("branch name is required", nil)
	}
	if strings.ContainsAny(name, `/\:`) {
		return errors.ValidationError("branch name cannot contain path separators or ':'", name)
	}
	if strings.HasPrefix(name, ".") {
		return errors.ValidationError("branch name cannot start with '.'", name)
	}
	if strings.ContainsAny(name, " \t\r\n") {
		return errors.ValidationError("branch name cannot contain whitespace", name)
	}
	return nil
}

// ValidateCommitID accepts exactly layout.IDWidth decimal digits.
func ValidateCommitID(id string) error {
	if !IsCommitID(id) {
		return errors.ValidationError("commit id must be 4 digits", id)
	}
	return nil
}

func IsCommitID(id string) bool {
	if len(id) != layout.IDWidth {
		return false
	}
	for _, c := range id {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// ValidateStagedName rejects basenames that collide with commit records.
func ValidateStagedName(name string) error {
	if name == layout.MessageFile {
		return errors.ValidationError("file name 'message' is reserved for commit messages", name)
	}
	return nil
}
