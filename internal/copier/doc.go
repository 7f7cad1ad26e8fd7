// Package copier streams batches of media files to their destination while
// reporting overall progress.
//
// A Task copies on its own goroutine, emits throttled percent updates across
// the whole batch (weighted by bytes, not file count), and finishes with a
// single terminal outcome readable once Done closes. Partial destination
// files are removed on failure so a retried run never finds a truncated
// copy. Optional SHA-256 verification compares the source and written
// streams the same way the repository's single-file helpers do.
package copier
