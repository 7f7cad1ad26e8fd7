// Package services defines the error taxonomy shared by workflow steps and
// the context annotations used to correlate their log output.
//
// Every external operation the orchestrator invokes wraps its failures with
// one of the exported sentinel errors so the workflow can classify them
// without inspecting message text. Message recovers the human-readable detail
// for display once classification has happened.
package services
