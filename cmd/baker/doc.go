// Package main hosts the Baker CLI entrypoint and command graph.
//
// The Cobra-based command tree drives the project build workflow, scans
// destination roots for existing projects, lists run history, and scaffolds
// configuration. It centralizes configuration resolution and structured
// logging setup so subcommands can focus on user experience instead of
// wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
