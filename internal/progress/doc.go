// Package progress translates the copy engine's asynchronous update stream
// into the ordered progress and terminal callbacks the workflow machine
// consumes.
//
// The bridge owns the only subscription to a copy task. It preserves update
// order, guarantees the terminal complete-or-error callback fires at most
// once, and stops forwarding entirely once closed so stray ticks from an
// abandoned run never reach the machine.
package progress
