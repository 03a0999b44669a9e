// Package trace provides decision-trace recording for disk scheduling policy analysis.
// This package has no dependencies on sim/; it stores pure data types.
package trace

import "time"

// SelectionRecord captures a single scheduling policy decision and the service that followed it.
type SelectionRecord struct {
	RequestID  string
	Policy     string
	Clock      time.Time
	Position   int
	HeadBefore int
	Movements  int
	Priority   int     // effective priority at selection time
	Score      float64 // policy-specific score of the chosen request
	Direction  int     // sweep direction after the decision, always +1 for non-sweep policies
	Pending    int     // requests still pending after the decision
	CacheHit   bool    // the transfer buffer served the request from its cache
}

// TransferRecord captures a transfer path failure that did not stop the scheduler.
type TransferRecord struct {
	RequestID string
	Clock     time.Time
	Reason    string
}
