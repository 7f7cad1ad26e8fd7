// Package logging builds the slog loggers used across Baker.
//
// It supplies a human-oriented console handler (colored when writing to a
// terminal), a JSON handler for log files and machine consumption, attribute
// helper functions, and context-derived fields so every workflow step logs
// with its run identifier attached.
package logging
