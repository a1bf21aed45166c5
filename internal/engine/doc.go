// Package engine implements the tapevm execution engine.
//
// An Engine executes a compiled program one instruction per Step against
// its own byte tape, calling an injected InputProvider on ',' and an
// OutputSink on '.'. It never touches stdin or stdout itself.
//
// # Lifecycle
//
//	NotStarted --Start--> Running --Step past end / Stop / error--> Halted
//	Halted --Start--> Running (fresh tape)
//
// Step, Stop and Run are no-ops outside Running. Stop(true) releases the
// tape; Stop(false), a natural halt and a failed step keep it for
// inspection through Snapshot.
//
// # Concurrency
//
// Execution is externally driven and single-threaded: one Step executes
// one token and returns control. The engine never suspends on its own and
// imposes no step limit; runaway-loop protection belongs to the caller
// (see package session). A compiled program may be shared by any number of
// engines, each owning its tape exclusively, without locking.
//
// # Loops
//
// '[' and ']' are conditional jumps through the program's jump table. No
// loop stack exists at run time; nesting correctness comes entirely from
// the jump table built at compile time.
package engine
