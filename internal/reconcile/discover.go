package reconcile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ValidatePattern reports whether pattern is a well-formed glob.
func ValidatePattern(pattern string) error {
	if pattern == "" {
		return fmt.Errorf("%w: empty pattern", ErrInvalidPattern)
	}
	if strings.ContainsRune(pattern, filepath.Separator) {
		return fmt.Errorf("%w: %q must not contain a path separator", ErrInvalidPattern, pattern)
	}
	if _, err := filepath.Match(pattern, ""); err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidPattern, pattern, err)
	}
	return nil
}

// MatchName reports whether a directory entry name is selected by pattern.
// Hidden names only match patterns that start with a dot.
func MatchName(pattern, name string) bool {
	if strings.HasPrefix(name, ".") && !strings.HasPrefix(pattern, ".") {
		return false
	}
	ok, err := filepath.Match(pattern, name)
	return err == nil && ok
}

// Discover lists the entries of dir selected by pattern in lexical order.
// Matching directories are returned too; reading them fails later.
func Discover(dir, pattern string) ([]string, error) {
	if err := ValidatePattern(pattern); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}

	var paths []string
	for _, entry := range entries {
		if MatchName(pattern, entry.Name()) {
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}
	return paths, nil
}
