package session

import (
	"errors"
	"fmt"
)

// StepBudget counts executed instructions against a caller-chosen limit.
//
// A limit of 0 means unlimited. The budget is checked before every step,
// so a run that exceeds it has executed exactly Limit instructions.
type StepBudget struct {
	limit   int64
	current int64
}

// NewStepBudget creates a budget with the given limit.
func NewStepBudget(limit int64) *StepBudget {
	return &StepBudget{limit: limit}
}

// Check increments the step counter and validates it against the limit.
// Returns *BudgetExceededError once the limit is passed.
func (b *StepBudget) Check(runID string) error {
	b.current++
	if b.limit > 0 && b.current > b.limit {
		return &BudgetExceededError{
			RunID: runID,
			Steps: b.current - 1,
			Limit: b.limit,
		}
	}
	return nil
}

// Current returns the number of steps counted so far.
func (b *StepBudget) Current() int64 {
	return b.current
}

// Limit returns the configured limit.
func (b *StepBudget) Limit() int64 {
	return b.limit
}

// BudgetExceededError is returned when a run executes more steps than its
// budget allows. The engine is stopped with its tape kept.
type BudgetExceededError struct {
	RunID string
	Steps int64
	Limit int64
}

// Error implements the error interface.
func (e *BudgetExceededError) Error() string {
	return fmt.Sprintf("run %s exceeded step budget: %d steps, limit %d", e.RunID, e.Steps, e.Limit)
}

// IsBudgetExceeded returns true if err is a *BudgetExceededError.
// Uses errors.As to handle wrapped errors.
func IsBudgetExceeded(err error) bool {
	var be *BudgetExceededError
	return errors.As(err, &be)
}
