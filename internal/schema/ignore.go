package schema

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/gobwas/glob"
)

// DefaultIgnoreTemplate is written when no ignore file exists yet
const DefaultIgnoreTemplate = `# Tables to exclude from natural language SQL processing
# Each line is a pattern (glob-style) matching table names to ignore
# Examples:
# temp_*          # Ignore all tables starting with temp_
# *_backup        # Ignore all tables ending with _backup
# test_table      # Ignore specific table
# *_log*          # Ignore any table containing _log
#
# Lines starting with # are comments
`

// IgnorePatterns is the set of glob patterns read from an ignore file
type IgnorePatterns []string

// LoadIgnorePatterns reads patterns from path. A missing file yields no patterns.
func LoadIgnorePatterns(path string) (IgnorePatterns, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return IgnorePatterns{}, nil
		}

		return nil, fmt.Errorf("failed to open ignore file: %w", err)
	}
	defer f.Close()

	return ParseIgnorePatterns(f)
}

// ParseIgnorePatterns reads one pattern per line. Text after # is a comment.
func ParseIgnorePatterns(r io.Reader) (IgnorePatterns, error) {
	patterns := IgnorePatterns{}
	seen := map[string]bool{}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line, _, _ := strings.Cut(scanner.Text(), "#")
		line = strings.TrimSpace(line)

		if line == "" || seen[line] {
			continue
		}

		seen[line] = true
		patterns = append(patterns, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read ignore file: %w", err)
	}

	return patterns, nil
}

// CreateDefaultIgnoreFile writes the template if path does not exist and
// reports whether it did
func CreateDefaultIgnoreFile(path string) (bool, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return false, nil
		}

		return false, fmt.Errorf("failed to create ignore file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(DefaultIgnoreTemplate); err != nil {
		return false, fmt.Errorf("failed to write ignore file: %w", err)
	}

	return true, nil
}

// Match returns the first pattern matching table, compared case-insensitively.
// Patterns follow fnmatch rules, so [!...] negates a class. Patterns that do
// not compile never match.
func (p IgnorePatterns) Match(table string) (string, bool) {
	name := strings.ToLower(table)

	for _, pattern := range p {
		g, err := glob.Compile(strings.ToLower(pattern))
		if err != nil {
			continue
		}

		if g.Match(name) {
			return pattern, true
		}
	}

	return "", false
}
