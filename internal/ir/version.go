package ir

// Version constants recorded with every stored run.
const (
	// TraceVersion is the step record schema version.
	TraceVersion = "1"

	// EngineVersion is the tapevm engine version.
	EngineVersion = "0.1.0"
)
