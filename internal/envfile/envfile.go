// Package envfile reads dotenv-style KEY=VALUE files into flat credential mappings.
package envfile

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/eugenenazirov/dbcreds/internal/lines"
)

// ParseFile reads the env file at path. A missing file yields an error wrapping
// fs.ErrNotExist.
func ParseFile(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open env file: %w", err)
	}
	defer f.Close()

	creds, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse env file %s: %w", path, err)
	}
	return creds, nil
}

// Parse reads KEY=VALUE lines from r. Lines are trimmed, then split on the first
// '='; neither side is trimmed again. Comments and lines without '=' are skipped
// and the last occurrence of a key wins.
func Parse(r io.Reader) (map[string]string, error) {
	creds := make(map[string]string)

	err := lines.Each(r, func(raw string) {
		line := strings.TrimSpace(raw)
		if strings.HasPrefix(line, "#") {
			return
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return
		}
		creds[key] = value
	})
	if err != nil {
		return nil, fmt.Errorf("read lines: %w", err)
	}
	return creds, nil
}
