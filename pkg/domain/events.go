package domain

import (
	"context"
	"time"
)

// NodeEvent describes entry into or exit from a node.
type NodeEvent struct {
	Timestamp   time.Time     `json:"timestamp"`
	ExecutionID string        `json:"execution_id"`
	NodeID      string        `json:"node_id"`
	NodeType    string        `json:"node_type"`
	Attempt     int           `json:"attempt"`
	Duration    time.Duration `json:"duration,omitempty"` // set on leave
	Err         error         `json:"-"`                  // set on leave when the node failed
}

// RetryEvent describes a scheduled retry of a failed node attempt.
type RetryEvent struct {
	Timestamp   time.Time     `json:"timestamp"`
	ExecutionID string        `json:"execution_id"`
	NodeID      string        `json:"node_id"`
	Attempt     int           `json:"attempt"`
	Backoff     time.Duration `json:"backoff"`
	Err         error         `json:"-"`
}

// CheckpointEvent describes a persisted state snapshot.
type CheckpointEvent struct {
	Timestamp   time.Time `json:"timestamp"`
	ExecutionID string    `json:"execution_id"`
	NodeID      string    `json:"node_id"`
}

// LifecycleHooks defines callbacks for engine observability.
// All hooks are optional and must not block; they run on the executor's
// goroutine between frontier steps.
type LifecycleHooks struct {
	OnNodeEnter  func(context.Context, *NodeEvent)
	OnNodeLeave  func(context.Context, *NodeEvent)
	OnNodeRetry  func(context.Context, *RetryEvent)
	OnCheckpoint func(context.Context, *CheckpointEvent)
	OnSignal     func(context.Context, Signal)
}
