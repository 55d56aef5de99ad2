package yamlcreds

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/eugenenazirov/dbcreds/internal/lines"
)

var (
	sectionPattern = regexp.MustCompile(`^[\p{L}\p{N}_]+:$`)
	pairPattern    = regexp.MustCompile(`^([\p{L}\p{N}_]+):[\s\v\p{Z}\x{85}]*(.+)$`)
)

// credentialSections are parent sections whose pairs are always kept.
var credentialSections = map[string]struct{}{
	"mysql":    {},
	"database": {},
}

// credentialKeys are kept regardless of the parent section.
var credentialKeys = map[string]struct{}{
	"user":     {},
	"password": {},
	"name":     {},
	"db_user":  {},
	"db_pass":  {},
	"db_name":  {},
}

// ExtractFile runs Extract over the file at path.
func ExtractFile(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open yaml file: %w", err)
	}
	defer f.Close()

	creds, err := Extract(f)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", path, err)
	}
	return creds, nil
}

// Extract scans r line by line and returns the credential pairs it recognises.
func Extract(r io.Reader) (map[string]string, error) {
	creds := make(map[string]string)
	parent := ""

	err := lines.Each(r, func(raw string) {
		line := strings.TrimSpace(raw)

		// The section update must happen before the pair check on the same line.
		if sectionPattern.MatchString(line) {
			parent = strings.TrimSuffix(line, ":")
		}

		m := pairPattern.FindStringSubmatch(line)
		if m == nil {
			return
		}
		key, value := m[1], m[2]
		if isCredentialSection(parent) || isCredentialKey(key) {
			creds[key] = value
		}
	})
	if err != nil {
		return nil, fmt.Errorf("read lines: %w", err)
	}
	return creds, nil
}

func isCredentialSection(name string) bool {
	_, ok := credentialSections[name]
	return ok
}

func isCredentialKey(key string) bool {
	_, ok := credentialKeys[key]
	return ok
}
