// Package daemon coordinates the long-running snapship process.
//
// It wires the filesystem watcher and the upload pipeline into a single
// lifecycle with flock-based locking to prevent multiple instances against
// the same log directory. Orchestration lives here; detection, upload, and
// archive behavior live in their own packages.
package daemon
