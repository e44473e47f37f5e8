package domain

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// EmitFunc forwards an advisory signal upward to the host.
type EmitFunc func(Signal)

// ExecContext is the read-only snapshot a node executes against.
//
// The executor builds a fresh ExecContext for every node invocation from the
// state as of that moment. Parallel siblings receive an identical pre-fan-out
// snapshot and never observe each other's in-flight updates.
type ExecContext struct {
	// State is a private snapshot copy. Nodes may read it freely; writes to
	// it are discarded (updates travel back through Result.Update).
	State *State

	// Config carries run-scoped caller configuration, opaque to the engine.
	Config map[string]any

	// Errors lists node failures accumulated so far in this run.
	Errors []NodeError

	// Schema exposes the field reducers, letting composite nodes (parallel,
	// loop) merge partial updates the same way the executor does.
	Schema Schema

	// Emit surfaces an advisory signal. Never nil; defaults to a no-op.
	Emit EmitFunc

	// MaxConcurrency is the engine's fan-out bound for parallel children.
	// Node-level configuration may override it.
	MaxConcurrency int
}

// NewExecContext assembles a context around a state snapshot.
// A nil emit is replaced with a no-op so nodes can emit unconditionally.
func NewExecContext(state *State, schema Schema, config map[string]any, emit EmitFunc) *ExecContext {
	if emit == nil {
		emit = func(Signal) {}
	}
	return &ExecContext{
		State:          state,
		Config:         config,
		Errors:         state.Errors,
		Schema:         schema,
		Emit:           emit,
		MaxConcurrency: 1,
	}
}

// Output looks up the raw output a prior node recorded.
func (ec *ExecContext) Output(nodeID string) (any, bool) {
	v, ok := ec.State.Outputs[nodeID]
	return v, ok
}

// DecodeOutput maps a prior node's output onto a typed struct.
func (ec *ExecContext) DecodeOutput(nodeID string, out any) error {
	v, ok := ec.State.Outputs[nodeID]
	if !ok {
		return fmt.Errorf("no output recorded for node %q", nodeID)
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
		return fmt.Errorf("failed to decode output of node %q: %w", nodeID, err)
	}
	return nil
}
