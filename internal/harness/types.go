package harness

import "github.com/roach88/tapevm/internal/ir"

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if the expect clause and all assertions match.
	Pass bool `json:"pass"`

	RunID     string `json:"run_id"`
	Status    string `json:"status"`
	Steps     int64  `json:"steps"`
	Output    []byte `json:"output"`
	ErrorKind string `json:"error_kind,omitempty"`
	Error     string `json:"error,omitempty"`

	// Pointer and Cells describe the final tape. Cells is nil when the
	// program was rejected before running.
	Pointer int    `json:"pointer"`
	Cells   []byte `json:"-"`

	// Trace contains every executed step in seq order.
	Trace []ir.Step `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// StatusRejected is the status of a scenario whose program did not compile.
const StatusRejected = "rejected"

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Output: []byte{},
		Trace:  []ir.Step{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
