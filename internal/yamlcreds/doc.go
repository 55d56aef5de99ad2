// Package yamlcreds extracts database credential fields from YAML-like files.
//
// Extract implements a line-oriented heuristic that never parses YAML: a bare
// "word:" line becomes the current parent section until the next one, and any
// "word: value" line is kept when that section is mysql or database, or when the
// key is one of the well-known credential names. The section is not scoped by
// indentation, so sibling blocks that reuse a key overwrite each other.
//
// ExtractNested parses the file with gopkg.in/yaml.v3 and scopes sections by
// actual nesting. Diff reports the keys on which the two extractors disagree.
package yamlcreds
