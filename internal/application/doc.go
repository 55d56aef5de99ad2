// Package application provides application initialization and dependency wiring.
// It builds the reconciler, renderer and watcher from the resolved configuration,
// keeping the main package focused on CLI parsing and signal handling.
package application
