// Package ir holds the shared value types of tapevm: instruction symbols,
// tokens and step records, plus canonical JSON and content hashing.
//
// ir imports nothing internal. The compiler, engine, store and harness all
// depend on it, never the other way round.
//
// Ordering is always by logical step number (Seq), never wall-clock time.
package ir
