// Package pipeline turns watch events into upload attempts. Each accepted
// file is debounced, re-checked, uploaded, and archived in its own goroutine,
// with the outcome journaled and optionally pushed as a notification.
package pipeline
