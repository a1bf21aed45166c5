// Package session drives an engine on behalf of a caller.
//
// The engine executes one instruction per Step and nothing more. Everything
// a caller layers on top lives here: run IDs, an optional step budget,
// breakpoints, a per-step trace and capture of the bytes that crossed the
// input and output capabilities so a run can be stored and replayed.
//
// The step budget is a caller-side guard. The engine itself never limits
// execution; a Session without MaxSteps runs a non-terminating program
// until its context is cancelled.
package session
