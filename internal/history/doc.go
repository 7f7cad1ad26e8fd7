// Package history records workflow runs in a local SQLite database so
// `baker history` can show what was built, when, and how it ended.
package history
