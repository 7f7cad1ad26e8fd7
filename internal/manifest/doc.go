// Package manifest defines the breadcrumbs file persisted in every project
// folder: the project title, camera count, file-to-camera mapping, and
// creation metadata.
//
// Writes are atomic so a breadcrumbs file is never observable half-written,
// and Read distinguishes a folder that has no manifest (nil, nil) from one
// whose manifest exists but cannot be parsed (an error). The workflow writes
// a manifest exactly once per build; the scanner is the only component that
// rewrites one afterwards.
package manifest
