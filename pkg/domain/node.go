package domain

import (
	"context"
	"time"
)

// NodeType constants define the control flow behavior of a node.
const (
	// NodeTypeTask is a plain function node with no special engine treatment.
	NodeTypeTask = "task"
	// NodeTypeAgent drives a backend session (create, prompt, stream, destroy).
	NodeTypeAgent = "agent"
	// NodeTypeTool invokes an external call with a timeout.
	NodeTypeTool = "tool"
	// NodeTypeDecision routes without mutating state.
	NodeTypeDecision = "decision"
	// NodeTypeWait suspends the run pending external input.
	NodeTypeWait = "wait"
	// NodeTypeParallel fans out child nodes against one snapshot.
	NodeTypeParallel = "parallel"
	// NodeTypeSubgraph runs a nested compiled graph as a single node.
	NodeTypeSubgraph = "subgraph"
	// NodeTypeLoop re-invokes a body until a condition or an iteration cap.
	// Loop nodes are the only nodes the executor intentionally revisits.
	NodeTypeLoop = "loop"
)

// ExecFunc is the work a node performs. The context carries cancellation;
// the ExecContext carries the read-only state snapshot.
type ExecFunc func(ctx context.Context, ec *ExecContext) (*Result, error)

// CatchFunc intercepts an error that exhausted retries and returns a recovery
// result (typically a goto to an error-handling branch) instead of propagating.
type CatchFunc func(ctx context.Context, ec *ExecContext, err error) (*Result, error)

// RetryPolicy controls per-node retry with exponential backoff.
// The executor retries the same node, never the whole graph.
type RetryPolicy struct {
	// MaxAttempts is the total number of invocations (first try included).
	MaxAttempts int

	// Backoff is the delay before the first retry.
	Backoff time.Duration

	// Multiplier scales the delay after each attempt. Values below 1 are
	// treated as 1 (constant backoff).
	Multiplier float64

	// RetryOn decides whether an error is eligible for retry.
	// Nil means every error is eligible.
	RetryOn func(error) bool
}

// SubgraphSpec configures how a subgraph node exchanges state with its parent.
type SubgraphSpec struct {
	// Ref names a graph registered in an engine Library. Resolved at compile
	// time; reference cycles are rejected before any node runs.
	Ref string `json:"ref,omitempty"`

	// InputKeys selects which parent values seed the subgraph. Empty means all.
	InputKeys []string `json:"input_keys,omitempty"`

	// OutputKeys selects which final subgraph values fold back into the
	// parent (through the parent's reducers). Empty means all.
	OutputKeys []string `json:"output_keys,omitempty"`
}

// Node represents a typed unit of work in the graph.
// Nodes are immutable once registered with a builder.
type Node struct {
	ID          string
	Type        string
	Name        string
	Description string

	// Model is an opaque backend model identifier. The engine never parses
	// it; it is passed through to the backend adapter untouched.
	Model string

	// Retry, when set, wraps Execute with bounded retry and backoff.
	Retry *RetryPolicy

	// Execute performs the node's work. Required for every node except
	// unresolved subgraph references (filled in at compile time).
	Execute ExecFunc

	// Catch, when set, intercepts errors that exhausted retry.
	Catch CatchFunc

	// Subgraph marks this node as a named subgraph reference.
	Subgraph *SubgraphSpec
}
