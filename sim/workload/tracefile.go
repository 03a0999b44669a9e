package workload

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/disk-sim/disk-sim/sim"
)

// TraceVersion is the trace file format version written by SaveTrace.
const TraceVersion = 1

// TraceRequest is one request in a trace file.
type TraceRequest struct {
	Device   int    `yaml:"device"`
	Position int    `yaml:"position"`
	Kind     string `yaml:"kind"`
	Priority int    `yaml:"priority"`
}

// TraceFile is a replayable request sequence.
type TraceFile struct {
	Version   int            `yaml:"trace_version"`
	CreatedAt string         `yaml:"created_at,omitempty"`
	Seed      *int64         `yaml:"seed,omitempty"` // generator seed, when generated
	Requests  []TraceRequest `yaml:"requests"`
}

// NewTraceFile captures reqs in submission order.
func NewTraceFile(reqs []*sim.Request, seed *int64) *TraceFile {
	tf := &TraceFile{
		Version:   TraceVersion,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		Seed:      seed,
		Requests:  make([]TraceRequest, len(reqs)),
	}
	for i, r := range reqs {
		tf.Requests[i] = TraceRequest{Device: r.DeviceID, Position: r.Position, Kind: string(r.Kind), Priority: r.Priority}
	}
	return tf
}

// SaveTrace writes tf as YAML to path.
func SaveTrace(tf *TraceFile, path string) error {
	data, err := yaml.Marshal(tf)
	if err != nil {
		return fmt.Errorf("encoding trace: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing trace: %w", err)
	}
	return nil
}

// LoadTrace reads a trace file, rejecting unknown fields and unsupported versions.
func LoadTrace(path string) (*TraceFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading trace: %w", err)
	}
	var tf TraceFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&tf); err != nil {
		return nil, fmt.Errorf("parsing trace: %w", err)
	}
	if tf.Version != TraceVersion {
		return nil, fmt.Errorf("unsupported trace_version %d (want %d)", tf.Version, TraceVersion)
	}
	return &tf, nil
}

// ToRequests converts the trace into fresh requests, each with a new identity.
func (tf *TraceFile) ToRequests() ([]*sim.Request, error) {
	reqs := make([]*sim.Request, 0, len(tf.Requests))
	for i, tr := range tf.Requests {
		r := sim.NewRequest(tr.Device, tr.Position, sim.Kind(tr.Kind), tr.Priority)
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("trace request %d: %w", i, err)
		}
		reqs = append(reqs, r)
	}
	return reqs, nil
}
