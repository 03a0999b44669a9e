package trace

import "sync"

// TraceLevel controls the verbosity of decision tracing.
type TraceLevel string

const (
	// TraceLevelNone disables tracing (zero overhead).
	TraceLevelNone TraceLevel = "none"
	// TraceLevelDecisions captures every selection decision.
	TraceLevelDecisions TraceLevel = "decisions"
)

// validTraceLevels maps accepted trace level strings.
var validTraceLevels = map[TraceLevel]bool{
	TraceLevelNone:      true,
	TraceLevelDecisions: true,
	"":                  true, // empty defaults to none
}

// IsValidTraceLevel returns true if the given level string is a recognized trace level.
func IsValidTraceLevel(level string) bool {
	return validTraceLevels[TraceLevel(level)]
}

// TraceConfig controls trace collection behavior.
type TraceConfig struct {
	Level TraceLevel
	Limit int // most recent selections kept (0 = unbounded)
}

// SimulationTrace collects decision records during a scheduler run.
// Recording is safe for concurrent use; the exported slices must only be
// read once the run has finished.
type SimulationTrace struct {
	mu         sync.Mutex
	Config     TraceConfig
	Selections []SelectionRecord
	Transfers  []TransferRecord
}

// NewSimulationTrace creates a SimulationTrace ready for recording.
func NewSimulationTrace(config TraceConfig) *SimulationTrace {
	return &SimulationTrace{
		Config:     config,
		Selections: make([]SelectionRecord, 0),
		Transfers:  make([]TransferRecord, 0),
	}
}

// Enabled reports whether records are kept. Safe on a nil trace.
func (st *SimulationTrace) Enabled() bool {
	return st != nil && st.Config.Level == TraceLevelDecisions
}

// RecordSelection appends a selection record, dropping the oldest beyond Limit.
func (st *SimulationTrace) RecordSelection(record SelectionRecord) {
	if !st.Enabled() {
		return
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	st.Selections = append(st.Selections, record)
	if st.Config.Limit > 0 && len(st.Selections) > st.Config.Limit {
		st.Selections = st.Selections[len(st.Selections)-st.Config.Limit:]
	}
}

// RecordTransfer appends a transfer failure record.
func (st *SimulationTrace) RecordTransfer(record TransferRecord) {
	if !st.Enabled() {
		return
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	st.Transfers = append(st.Transfers, record)
}
