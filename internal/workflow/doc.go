// Package workflow drives a project build from validation through folder
// creation, breadcrumbs persistence, footage copy, and template duplication
// to a terminal success or failure.
//
// The Machine is an explicit finite-state machine. Every external operation
// runs as an asynchronous task launched exactly once per state entry per
// run; tasks report back through events stamped with the run identifier
// they were launched under, so results from an abandoned run are discarded
// rather than applied to a newer one. Events with no row in the transition
// table for the current state are deliberate no-ops: late progress ticks or
// duplicate completions never disturb the workflow.
//
// Both terminal states leave only via a reset, which clears per-run fields
// while preserving the configured title, files, camera count, and username
// so a caller can adjust configuration and start again. A completed run may
// also chain straight into a new one by delivering a fresh validation
// result from the success state.
package workflow
