// Package main hosts the snapship CLI entrypoint and command graph.
//
// The Cobra-based command tree covers the foreground daemon (`run`), process
// control (`start`, `stop`, `status`), the upload journal (`history`), log
// tailing (`logs`), and configuration scaffolding (`config`). It centralizes
// configuration resolution so subcommands can focus on user experience.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
