package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/tapevm/internal/console"
)

// Scenario defines a conformance test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Program is the inline program source. Exactly one of Program and
	// ProgramFile is set.
	Program string `yaml:"program,omitempty"`

	// ProgramFile is a path to the program source, relative to the
	// scenario file. LoadScenario resolves it.
	ProgramFile string `yaml:"program_file,omitempty"`

	// Cells is the tape length (initial length when Growable). 0 means the
	// default of 30000.
	Cells    int  `yaml:"cells,omitempty"`
	Growable bool `yaml:"growable,omitempty"`

	// Input is fed one byte per input instruction; once exhausted the EOF
	// policy applies.
	Input string `yaml:"input,omitempty"`

	// InputBytes feeds raw provider values instead of Input, including
	// out-of-range ones. Reading past the end fails the step.
	InputBytes []int `yaml:"input_bytes,omitempty"`

	// EOF is the end-of-input policy for Input: zero (default), keep or error.
	EOF string `yaml:"eof,omitempty"`

	// MaxSteps caps the run. 0 is unlimited.
	MaxSteps int64 `yaml:"max_steps,omitempty"`

	// RunID is a fixed run ID for deterministic golden files.
	// If empty, defaults to "test-run-default".
	RunID string `yaml:"run_id,omitempty"`

	// Expect describes the outcome.
	Expect Expect `yaml:"expect"`

	// Assertions validate the step trace and the stored run.
	Assertions []Assertion `yaml:"assertions,omitempty"`

	// Golden compares the trace with testdata/golden/<name>.golden.
	Golden bool `yaml:"golden,omitempty"`
}

// Expect specifies the expected outcome. Unset fields are not checked.
type Expect struct {
	// Output is the expected output as text.
	Output *string `yaml:"output,omitempty"`

	// OutputBytes is the expected output as byte values.
	OutputBytes []int `yaml:"output_bytes,omitempty"`

	// Error is the expected error kind; empty expects a clean halt.
	Error string `yaml:"error,omitempty"`

	// Pointer is the final pointer position.
	Pointer *int `yaml:"pointer,omitempty"`

	// Cells is the expected prefix of the final tape.
	Cells []int `yaml:"cells,omitempty"`

	// Steps is the number of executed instructions.
	Steps *int64 `yaml:"steps,omitempty"`
}

// Error kinds accepted in Expect.Error.
const (
	KindUnbalancedBrackets = "UNBALANCED_BRACKETS"
	KindOutOfBounds        = "OUT_OF_BOUNDS"
	KindInvalidInputByte   = "INVALID_INPUT_BYTE"
	KindBudgetExceeded     = "BUDGET_EXCEEDED"
	KindError              = "ERROR"
)

var validKinds = map[string]bool{
	KindUnbalancedBrackets: true,
	KindOutOfBounds:        true,
	KindInvalidInputByte:   true,
	KindBudgetExceeded:     true,
	KindError:              true,
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	// Resolve the program file relative to the scenario BEFORE validation
	if scenario.ProgramFile != "" && !filepath.IsAbs(scenario.ProgramFile) {
		scenario.ProgramFile = filepath.Join(filepath.Dir(path), scenario.ProgramFile)
	}

	if err := validateScenario(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return scenario, nil
}

// ParseScenario decodes scenario YAML without validating it.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	switch {
	case s.Program == "" && s.ProgramFile == "":
		return fmt.Errorf("one of program or program_file is required")
	case s.Program != "" && s.ProgramFile != "":
		return fmt.Errorf("program and program_file are mutually exclusive")
	}

	if s.ProgramFile != "" {
		if _, err := os.Stat(s.ProgramFile); os.IsNotExist(err) {
			return fmt.Errorf("program file not found: %s", s.ProgramFile)
		}
	}

	if s.Cells < 0 {
		return fmt.Errorf("cells must not be negative")
	}

	if s.MaxSteps < 0 {
		return fmt.Errorf("max_steps must not be negative")
	}

	if s.Input != "" && s.InputBytes != nil {
		return fmt.Errorf("input and input_bytes are mutually exclusive")
	}

	if _, err := console.ParseEOFPolicy(s.EOF); err != nil {
		return err
	}

	if err := validateExpect(&s.Expect); err != nil {
		return err
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

func validateExpect(e *Expect) error {
	if e.Error != "" && !validKinds[e.Error] {
		return fmt.Errorf("expect.error: unknown kind %q", e.Error)
	}
	if e.Output != nil && e.OutputBytes != nil {
		return fmt.Errorf("expect: output and output_bytes are mutually exclusive")
	}
	for i, v := range e.OutputBytes {
		if v < 0 || v > 255 {
			return fmt.Errorf("expect.output_bytes[%d]: %d is not a byte", i, v)
		}
	}
	for i, v := range e.Cells {
		if v < 0 || v > 255 {
			return fmt.Errorf("expect.cells[%d]: %d is not a byte", i, v)
		}
	}
	return nil
}
