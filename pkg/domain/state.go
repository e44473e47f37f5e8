package domain

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
)

// Status defines the persisted lifecycle phase of a run.
type Status string

const (
	// StatusActive means the run is executing (or ready to continue).
	StatusActive Status = "active"
	// StatusSuspended means a wait node paused the run; it requires an explicit resume.
	StatusSuspended Status = "suspended"
	// StatusCompleted means a terminal node was reached.
	StatusCompleted Status = "completed"
	// StatusFailed means an unrecoverable error propagated past retry and catch handling.
	StatusFailed Status = "failed"
)

// Waiting records why a suspended run is paused and what it is waiting for.
type Waiting struct {
	NodeID string `json:"node_id"`
	Prompt string `json:"prompt"`
}

// State represents the current snapshot of a workflow run.
//
// State is never mutated in place by nodes. The executor merges each node's
// partial update through the Schema reducers and produces a new snapshot;
// nodes only ever see read-only copies via ExecContext.
type State struct {
	// ExecutionID uniquely identifies this run. It doubles as the checkpoint key.
	ExecutionID string `json:"execution_id"`

	// LastUpdated is bumped after every fully completed node.
	LastUpdated time.Time `json:"last_updated"`

	// Status indicates whether the run is active, suspended, completed or failed.
	Status Status `json:"status"`

	// Values holds the workflow-specific fields declared via the Schema.
	Values map[string]any `json:"values"`

	// Outputs maps node IDs to the raw output each node produced.
	Outputs map[string]any `json:"outputs"`

	// Iterations tracks per-loop-node iteration counters. Counters are
	// monotonic, so a checkpoint taken mid-loop resumes at the right pass.
	Iterations map[string]int `json:"iterations,omitempty"`

	// Frontier is the set of node IDs scheduled for the next traversal step.
	// Persisted so a suspended or crashed run can continue where it stopped.
	Frontier []string `json:"frontier,omitempty"`

	// Waiting is set while Status == StatusSuspended.
	Waiting *Waiting `json:"waiting,omitempty"`

	// Errors accumulates node failures observed during the run.
	Errors []NodeError `json:"errors,omitempty"`
}

// NewState creates a fresh state for a run, seeding Values with the schema defaults.
func NewState(executionID string, schema Schema) *State {
	return &State{
		ExecutionID: executionID,
		LastUpdated: time.Now().UTC(),
		Status:      StatusActive,
		Values:      schema.Defaults(),
		Outputs:     make(map[string]any),
		Iterations:  make(map[string]int),
	}
}

// Clone returns a copy of the state with fresh maps, safe for independent mutation.
// Values inside the maps are shared; reducers treat them as immutable.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	next := *s
	next.Values = make(map[string]any, len(s.Values))
	for k, v := range s.Values {
		next.Values[k] = v
	}
	next.Outputs = make(map[string]any, len(s.Outputs))
	for k, v := range s.Outputs {
		next.Outputs[k] = v
	}
	next.Iterations = make(map[string]int, len(s.Iterations))
	for k, v := range s.Iterations {
		next.Iterations[k] = v
	}
	next.Frontier = append([]string(nil), s.Frontier...)
	next.Errors = append([]NodeError(nil), s.Errors...)
	if s.Waiting != nil {
		w := *s.Waiting
		next.Waiting = &w
	}
	return &next
}

// Get returns a value from the workflow fields.
func (s *State) Get(key string) (any, bool) {
	v, ok := s.Values[key]
	return v, ok
}

// GetString returns a workflow field as a string, or "" if absent or not a string.
func (s *State) GetString(key string) string {
	if v, ok := s.Values[key]; ok {
		if str, ok := v.(string); ok {
			return str
		}
	}
	return ""
}

// GetBool returns a workflow field as a bool, or false if absent or not a bool.
func (s *State) GetBool(key string) bool {
	if v, ok := s.Values[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return false
}

// Decode maps a workflow field onto a typed struct using weak decoding.
// This is the bridge between the dynamic state map and caller-defined types.
func (s *State) Decode(key string, out any) error {
	v, ok := s.Values[key]
	if !ok {
		return fmt.Errorf("state has no field %q", key)
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		TagName:          "json",
	})
	if err != nil {
		return fmt.Errorf("failed to build decoder: %w", err)
	}
	if err := decoder.Decode(v); err != nil {
		return fmt.Errorf("failed to decode field %q: %w", key, err)
	}
	return nil
}
