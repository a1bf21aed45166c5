package store

import "errors"

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Program is a stored program source.
type Program struct {
	Hash   string `json:"hash"`
	Source string `json:"source"`
	Tokens int    `json:"tokens"`
}

// Run is one stored session run.
type Run struct {
	ID            string `json:"id"`
	ProgramHash   string `json:"program_hash"`
	Capacity      string `json:"capacity"`
	Status        string `json:"status"`
	ErrorKind     string `json:"error_kind,omitempty"`
	Error         string `json:"error,omitempty"`
	Steps         int64  `json:"steps"`
	Input         []byte `json:"input"`
	Output        []byte `json:"output"`
	TraceHash     string `json:"trace_hash,omitempty"`
	EngineVersion string `json:"engine_version"`
	Seq           int64  `json:"seq"`
}
