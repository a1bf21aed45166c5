package testutil

import (
	"errors"
	"sync"
)

// ErrInputExhausted is returned by ScriptedInput once every value is used.
var ErrInputExhausted = errors.New("scripted input exhausted")

// ScriptedInput is an input provider that returns predetermined values.
//
// Values are ints so tests can feed out-of-range input to exercise the
// engine's contract checks.
type ScriptedInput struct {
	mu     sync.Mutex
	values []int
	calls  int
}

// NewScriptedInput creates a provider returning values in order.
func NewScriptedInput(values ...int) *ScriptedInput {
	return &ScriptedInput{values: values}
}

// NewScriptedBytes creates a provider returning the bytes of s in order.
func NewScriptedBytes(s string) *ScriptedInput {
	values := make([]int, len(s))
	for i := 0; i < len(s); i++ {
		values[i] = int(s[i])
	}
	return &ScriptedInput{values: values}
}

// ReadCell returns the next value, or ErrInputExhausted.
func (in *ScriptedInput) ReadCell() (int, error) {
	in.mu.Lock()
	defer in.mu.Unlock()

	if in.calls >= len(in.values) {
		in.calls++
		return 0, ErrInputExhausted
	}
	v := in.values[in.calls]
	in.calls++
	return v, nil
}

// Calls returns how many times ReadCell was called.
func (in *ScriptedInput) Calls() int {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.calls
}

// RecordingOutput is an output sink that keeps every value it receives.
type RecordingOutput struct {
	mu     sync.Mutex
	values []byte

	// Err, when set, is returned from WriteCell after recording the value.
	Err error
}

// NewRecordingOutput creates an empty recording sink.
func NewRecordingOutput() *RecordingOutput {
	return &RecordingOutput{}
}

// WriteCell records v.
func (out *RecordingOutput) WriteCell(v byte) error {
	out.mu.Lock()
	defer out.mu.Unlock()
	out.values = append(out.values, v)
	return out.Err
}

// Bytes returns a copy of the recorded values.
func (out *RecordingOutput) Bytes() []byte {
	out.mu.Lock()
	defer out.mu.Unlock()
	b := make([]byte, len(out.values))
	copy(b, out.values)
	return b
}

// String returns the recorded values as text.
func (out *RecordingOutput) String() string {
	return string(out.Bytes())
}
