// Package harness provides a conformance testing framework for tapevm
// programs.
//
// A scenario is a YAML file naming a program (inline or by file), the tape
// capacity, the input and the expected outcome:
//
//	name: hello
//	description: prints a greeting
//	program_file: hello.bf
//	cells: 7
//	expect:
//	  output: "Hello World!\n"
//	  steps: 906
//	assertions:
//	  - type: max_pointer
//	    value: 6
//	  - type: replay
//	golden: true
//
// Run executes the scenario in a real session with a fixed run ID, records
// it in a fresh in-memory store and evaluates the expect clause and the
// assertions. With golden: true the step trace is compared against
// testdata/golden/<name>.golden using goldie.
//
// # Error kinds
//
// expect.error names the outcome kind: UNBALANCED_BRACKETS for programs
// rejected by the compiler, OUT_OF_BOUNDS and INVALID_INPUT_BYTE for engine
// failures, BUDGET_EXCEEDED when max_steps ran out and ERROR for any other
// failure (for example input_bytes running out).
package harness
