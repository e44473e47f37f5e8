package domain

import (
	"reflect"
)

// StateDiff represents the changes between two consecutive run states.
// Stream consumers use it to render incremental progress without re-reading
// the whole state after every node.
type StateDiff struct {
	// ExecutionID is always present to identify the run.
	ExecutionID string `json:"execution_id"`

	// Status is set when the run status changed.
	Status *Status `json:"status,omitempty"`

	// Values contains only changed or added workflow fields.
	// For deletions, the key is present with a nil value.
	Values map[string]any `json:"values,omitempty"`

	// Outputs contains node outputs recorded since the previous state.
	Outputs map[string]any `json:"outputs,omitempty"`

	// Waiting is set when the run entered or changed its suspension point.
	Waiting *Waiting `json:"waiting,omitempty"`
}

// Empty reports whether the diff carries no changes besides the run identity.
func (d *StateDiff) Empty() bool {
	return d.Status == nil && len(d.Values) == 0 && len(d.Outputs) == 0 && d.Waiting == nil
}

// Diff calculates the difference between oldState and newState.
// If oldState is nil, the diff represents the entire newState (initial load).
func Diff(oldState, newState *State) *StateDiff {
	if newState == nil {
		return nil
	}

	diff := &StateDiff{ExecutionID: newState.ExecutionID}

	if oldState == nil || oldState.Status != newState.Status {
		status := newState.Status
		diff.Status = &status
	}

	// Changed or added values.
	for k, v := range newState.Values {
		if oldState == nil {
			addDiffValue(diff, k, v)
			continue
		}
		old, existed := oldState.Values[k]
		if !existed || !reflect.DeepEqual(old, v) {
			addDiffValue(diff, k, v)
		}
	}
	// Deleted values (rare, but reducers may prune).
	if oldState != nil {
		for k := range oldState.Values {
			if _, still := newState.Values[k]; !still {
				addDiffValue(diff, k, nil)
			}
		}
	}

	for id, out := range newState.Outputs {
		if oldState != nil {
			if _, seen := oldState.Outputs[id]; seen {
				continue
			}
		}
		if diff.Outputs == nil {
			diff.Outputs = make(map[string]any)
		}
		diff.Outputs[id] = out
	}

	if newState.Waiting != nil {
		if oldState == nil || oldState.Waiting == nil || *oldState.Waiting != *newState.Waiting {
			w := *newState.Waiting
			diff.Waiting = &w
		}
	}

	return diff
}

func addDiffValue(diff *StateDiff, key string, value any) {
	if diff.Values == nil {
		diff.Values = make(map[string]any)
	}
	diff.Values[key] = value
}
