package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrCheckpointNotFound is returned when an execution ID has no stored checkpoint.
var ErrCheckpointNotFound = errors.New("checkpoint not found")

// NodeError is the serializable record of a node failure kept on the state.
type NodeError struct {
	NodeID   string    `json:"node_id"`
	Attempts int       `json:"attempts"`
	Message  string    `json:"message"`
	Time     time.Time `json:"time"`
}

// NodeExecutionError is raised when a node fails after exhausting its retries
// (or immediately, for errors its policy does not retry).
type NodeExecutionError struct {
	NodeID   string
	Attempts int
	Err      error
}

func (e *NodeExecutionError) Error() string {
	return fmt.Sprintf("node %q failed after %d attempt(s): %v", e.NodeID, e.Attempts, e.Err)
}

func (e *NodeExecutionError) Unwrap() error { return e.Err }

// ValidationError is raised entirely at compile time, never mid-run.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return "invalid graph: " + e.Msg
}

// Validationf builds a ValidationError with a formatted message.
func Validationf(format string, args ...any) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// CycleError is raised when subgraph references form a cycle. It names the
// full reference chain so the offending composition is obvious.
type CycleError struct {
	Chain []string
}

func (e *CycleError) Error() string {
	return "circular subgraph reference: " + strings.Join(e.Chain, " -> ")
}

// TimeoutError is raised when a node or run exceeds its time budget.
type TimeoutError struct {
	NodeID  string
	Timeout time.Duration
	Err     error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("node %q timed out after %s", e.NodeID, e.Timeout)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// AbortError is raised when cooperative cancellation was observed mid-run.
// The last checkpoint is preserved, so the run can be resumed.
type AbortError struct {
	NodeID string
	Err    error
}

func (e *AbortError) Error() string {
	if e.NodeID == "" {
		return fmt.Sprintf("run aborted: %v", e.Err)
	}
	return fmt.Sprintf("run aborted at node %q: %v", e.NodeID, e.Err)
}

func (e *AbortError) Unwrap() error { return e.Err }
