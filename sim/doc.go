// Package sim provides the disk I/O scheduling core: requests, the
// DiskScheduler with its four policies, the seek service-time model and the
// metrics Ledger.
//
// # Reading Guide
//
//   - request.go: Request identity, validation and the derived-priority copy
//   - policy.go: FIFO-with-aging, predictive SSTF, SCAN and C-SCAN selectors
//   - scheduler.go: Submit, SelectNext, Process and the Run/Serve loops
//   - metrics.go: access spans and aggregate statistics
//
// # Architecture
//
// The transfer path lives in sub-packages that import sim:
//   - sim/dma/: bounded staging buffer with a key cache (the Transferer)
//   - sim/bus/: priority-level transfer bus with an on-demand drain worker
//   - sim/pipeline/: wires bus, buffer and scheduler from one Config
//   - sim/workload/: request generation, YAML traces and paced feeding
//   - sim/trace/: per-selection decision records
//
// The scheduler only sees the Transferer interface, so the buffer can be
// omitted or replaced in tests.
package sim
