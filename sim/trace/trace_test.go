package trace

import (
	"sync"
	"testing"
	"time"
)

func TestSimulationTrace_RecordSelection_AppendsRecord(t *testing.T) {
	// GIVEN a trace configured for decisions
	st := NewSimulationTrace(TraceConfig{Level: TraceLevelDecisions})

	// WHEN a selection record is recorded
	st.RecordSelection(SelectionRecord{
		RequestID:  "req_1",
		Policy:     "SSTF",
		Clock:      time.Unix(10, 0),
		Position:   42,
		HeadBefore: 40,
		Movements:  2,
		Priority:   3,
	})

	// THEN the trace contains one selection with the recorded data
	if len(st.Selections) != 1 {
		t.Fatalf("expected 1 selection, got %d", len(st.Selections))
	}
	if st.Selections[0].RequestID != "req_1" {
		t.Errorf("expected request ID req_1, got %s", st.Selections[0].RequestID)
	}
	if st.Selections[0].Movements != 2 {
		t.Errorf("expected 2 movements, got %d", st.Selections[0].Movements)
	}
}

func TestSimulationTrace_RecordTransfer_AppendsRecord(t *testing.T) {
	st := NewSimulationTrace(TraceConfig{Level: TraceLevelDecisions})

	st.RecordTransfer(TransferRecord{RequestID: "req_2", Reason: "buffer closed"})

	if len(st.Transfers) != 1 {
		t.Fatalf("expected 1 transfer record, got %d", len(st.Transfers))
	}
	if st.Transfers[0].Reason != "buffer closed" {
		t.Errorf("expected reason 'buffer closed', got %q", st.Transfers[0].Reason)
	}
}

func TestSimulationTrace_LevelNone_RecordsNothing(t *testing.T) {
	// GIVEN a trace with tracing disabled
	st := NewSimulationTrace(TraceConfig{Level: TraceLevelNone})

	// WHEN records are offered
	st.RecordSelection(SelectionRecord{RequestID: "r"})
	st.RecordTransfer(TransferRecord{RequestID: "r"})

	// THEN nothing is kept
	if len(st.Selections) != 0 || len(st.Transfers) != 0 {
		t.Errorf("expected empty trace, got %d selections and %d transfers", len(st.Selections), len(st.Transfers))
	}
}

func TestSimulationTrace_NilTrace_IsSafe(t *testing.T) {
	var st *SimulationTrace
	if st.Enabled() {
		t.Error("nil trace must report disabled")
	}
	st.RecordSelection(SelectionRecord{RequestID: "r"})
	st.RecordTransfer(TransferRecord{RequestID: "r"})
}

func TestSimulationTrace_Limit_KeepsMostRecent(t *testing.T) {
	// GIVEN a trace that keeps the last 3 selections
	st := NewSimulationTrace(TraceConfig{Level: TraceLevelDecisions, Limit: 3})

	// WHEN 5 selections are recorded
	for i := 0; i < 5; i++ {
		st.RecordSelection(SelectionRecord{Position: i})
	}

	// THEN only positions 2, 3 and 4 remain in order
	if len(st.Selections) != 3 {
		t.Fatalf("expected 3 selections, got %d", len(st.Selections))
	}
	for i, want := range []int{2, 3, 4} {
		if st.Selections[i].Position != want {
			t.Errorf("selection %d: expected position %d, got %d", i, want, st.Selections[i].Position)
		}
	}
}

func TestSimulationTrace_ConcurrentRecording(t *testing.T) {
	st := NewSimulationTrace(TraceConfig{Level: TraceLevelDecisions})
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				st.RecordSelection(SelectionRecord{Position: i})
			}
		}()
	}
	wg.Wait()
	if len(st.Selections) != 400 {
		t.Errorf("expected 400 selections, got %d", len(st.Selections))
	}
}

func TestIsValidTraceLevel(t *testing.T) {
	tests := []struct {
		level string
		valid bool
	}{
		{"none", true},
		{"decisions", true},
		{"", true},
		{"detailed", false},
		{"invalid", false},
	}
	for _, tc := range tests {
		if got := IsValidTraceLevel(tc.level); got != tc.valid {
			t.Errorf("IsValidTraceLevel(%q) = %v, want %v", tc.level, got, tc.valid)
		}
	}
}
