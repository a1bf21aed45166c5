// Package store provides SQLite-backed storage for tapevm run logs.
//
// The store is append-only and keeps three tables:
//   - programs: instruction source keyed by program hash
//   - runs: one row per session run with its captured input and output
//   - steps: the optional per-step trace of a run
//
// Runs are ordered by a logical seq assigned at write time, never by
// timestamps, so listings are identical across machines. Steps are ordered
// by their own seq within a run. The stored input and output are what
// replay needs to re-execute a run and compare the outcome; the final tape
// is not stored.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
