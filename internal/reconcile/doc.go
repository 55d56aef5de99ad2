// Package reconcile merges credentials from an env file and YAML files into a
// single Record. The env file always wins; YAML files are discovered in the
// working directory and merged with last-write-wins semantics in lexical order.
package reconcile
