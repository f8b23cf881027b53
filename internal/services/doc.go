// Package services defines shared utilities consumed by the upload pipeline
// and its supporting components.
//
// Key responsibilities:
//   - Context helpers that stamp component names, in-flight file paths, and
//     correlation identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that translate failures
//     into consistent journal statuses (failed vs vanished).
//
// Use these helpers when wiring new component logic so operational behaviour
// (error handling, observability) stays uniform across the pipeline.
package services
