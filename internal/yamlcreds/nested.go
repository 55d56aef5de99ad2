package yamlcreds

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// ExtractNestedFile runs ExtractNested over the file at path.
func ExtractNestedFile(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open yaml file: %w", err)
	}
	defer f.Close()

	creds, err := ExtractNested(f)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", path, err)
	}
	return creds, nil
}

// maxAliasExpansions bounds how many alias references a single call may follow,
// so anchor fan-out cannot grow the walk exponentially.
const maxAliasExpansions = 1000

// ExtractNested decodes every YAML document in r and collects credential pairs
// using real nesting. Scalars directly under a mysql or database mapping win over
// well-known keys found elsewhere; within each tier the later pair wins.
// Recursive aliases and excessive alias expansion yield ErrInvalidYAML.
func ExtractNested(r io.Reader) (map[string]string, error) {
	c := &collector{
		section:   make(map[string]string),
		loose:     make(map[string]string),
		expanding: make(map[*yaml.Node]bool),
	}

	dec := yaml.NewDecoder(r)
	for {
		var doc yaml.Node
		if err := dec.Decode(&doc); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
		}
		if err := c.collect(&doc, ""); err != nil {
			return nil, err
		}
	}

	creds := make(map[string]string, len(c.section)+len(c.loose))
	for k, v := range c.loose {
		creds[k] = v
	}
	for k, v := range c.section {
		creds[k] = v
	}
	return creds, nil
}

type collector struct {
	section map[string]string
	loose   map[string]string

	// expanding holds the anchored nodes on the current alias path.
	expanding  map[*yaml.Node]bool
	expansions int
}

func (c *collector) collect(node *yaml.Node, parent string) error {
	switch node.Kind {
	case yaml.DocumentNode, yaml.SequenceNode:
		for _, child := range node.Content {
			if err := c.collect(child, parent); err != nil {
				return err
			}
		}
	case yaml.AliasNode:
		return c.expand(node, parent)
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			keyNode, valueNode := node.Content[i], node.Content[i+1]
			if keyNode.Kind != yaml.ScalarNode {
				continue
			}
			key := keyNode.Value
			if valueNode.Kind == yaml.AliasNode && valueNode.Alias != nil && valueNode.Alias.Kind == yaml.ScalarNode {
				if err := c.countExpansion(); err != nil {
					return err
				}
				valueNode = valueNode.Alias
			}
			if valueNode.Kind != yaml.ScalarNode {
				if err := c.collect(valueNode, key); err != nil {
					return err
				}
				continue
			}
			if valueNode.Tag == "!!null" {
				continue
			}
			switch {
			case isCredentialSection(parent):
				c.section[key] = valueNode.Value
			case isCredentialKey(key):
				c.loose[key] = valueNode.Value
			}
		}
	}
	return nil
}

// expand walks the target of an alias node under parent.
func (c *collector) expand(alias *yaml.Node, parent string) error {
	target := alias.Alias
	if target == nil {
		return nil
	}
	if c.expanding[target] {
		return fmt.Errorf("%w: alias *%s refers to itself", ErrInvalidYAML, alias.Value)
	}
	if err := c.countExpansion(); err != nil {
		return err
	}

	c.expanding[target] = true
	defer delete(c.expanding, target)
	return c.collect(target, parent)
}

func (c *collector) countExpansion() error {
	c.expansions++
	if c.expansions > maxAliasExpansions {
		return fmt.Errorf("%w: more than %d alias expansions", ErrInvalidYAML, maxAliasExpansions)
	}
	return nil
}

// Diff returns the sorted keys whose presence or value differs between the
// heuristic and nested extractions of the same file.
func Diff(heuristic, nested map[string]string) []string {
	var keys []string
	for k, hv := range heuristic {
		if nv, ok := nested[k]; !ok || nv != hv {
			keys = append(keys, k)
		}
	}
	for k := range nested {
		if _, ok := heuristic[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}
