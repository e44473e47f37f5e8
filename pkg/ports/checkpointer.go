package ports

import (
	"context"

	"github.com/aretw0/espalier/pkg/domain"
)

// Checkpointer defines the interface for persisting run state.
// This enables durable execution: crash recovery and suspend/resume.
//
// Save is idempotent and overwrites any prior checkpoint for the state's
// execution ID. The checkpoint is written exclusively by the executor after a
// node fully completes; nodes never touch it directly.
type Checkpointer interface {
	// Save persists a snapshot keyed by state.ExecutionID.
	Save(ctx context.Context, state *domain.State) error

	// Load retrieves the latest snapshot for an execution ID.
	// Returns domain.ErrCheckpointNotFound if none exists.
	Load(ctx context.Context, executionID string) (*domain.State, error)

	// List enumerates known execution IDs.
	List(ctx context.Context) ([]string, error)

	// Delete removes the checkpoint for an execution ID.
	// Deleting a missing checkpoint is not an error.
	Delete(ctx context.Context, executionID string) error
}
