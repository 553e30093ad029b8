// internal/ignore/ignore.go
package ignore

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"minivcs/internal/errors"
	"minivcs/internal/layout"
)

// IsIgnored reports whether path ends with any of the patterns. Patterns are
// literal suffixes, not globs.
func IsIgnored(path string, patterns []string) bool {
	for _, pattern := range patterns {
		if strings.HasSuffix(path, pattern) {
			return true
		}
	}
	return false
}

// Load reads the pattern log. A missing file means no patterns.
func Load(file string) ([]string, error) {
	f, err := os.Open(file)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening ignore file: %w", err)
	}
	defer f.Close()

	var patterns []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		// A blank line would match every path
		if line := sc.Text(); line != "" {
			patterns = append(patterns, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading ignore file: %w", err)
	}
	return patterns, nil
}

// Append adds pattern to the end of the log. Patterns are never deduplicated.
func Append(file, pattern string) error {
	if pattern == "" || strings.ContainsAny(pattern, "\r\n") {
		return errors.ValidationError("ignore pattern must be a single non-empty line", pattern)
	}

	f, err := os.OpenFile(file, os.O_APPEND|os.O_CREATE|os.O_WRONLY, layout.FilePerm)
	if err != nil {
		return fmt.Errorf("opening ignore file: %w", err)
	}

	if _, err := f.WriteString(pattern + "\n"); err != nil {
		f.Close()
		return fmt.Errorf("appending ignore pattern: %w", err)
	}
	return f.Close()
}

// Matcher checks paths against the pattern log of one repository. It keeps no
// state, every check re-reads the file.
type Matcher struct {
	file string
}

func NewMatcher(file string) *Matcher {
	return &Matcher{file: file}
}

func (m *Matcher) Match(path string) (bool, error) {
	patterns, err := Load(m.file)
	if err != nil {
		return false, err
	}
	return IsIgnored(path, patterns), nil
}

func (m *Matcher) Add(pattern string) error {
	return Append(m.file, pattern)
}
