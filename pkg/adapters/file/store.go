// Package file provides a filesystem-backed Checkpointer.
// Each run is stored as one JSON file under a configurable directory.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/espalier/pkg/domain"
)

const ext = ".json"

// Store implements ports.Checkpointer using the local filesystem.
type Store struct {
	// Dir is the checkpoint directory. Created on first Save.
	Dir string
}

// NewStore creates a new file store rooted at dir.
// If dir is empty, it defaults to ".espalier/checkpoints".
func NewStore(dir string) *Store {
	if dir == "" {
		dir = filepath.Join(".espalier", "checkpoints")
	}
	return &Store{Dir: dir}
}

// Save persists the run state to <dir>/<executionID>.json.
func (s *Store) Save(ctx context.Context, state *domain.State) error {
	if state.ExecutionID == "" {
		return fmt.Errorf("execution id cannot be empty")
	}

	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return fmt.Errorf("failed to ensure checkpoint directory: %w", err)
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	if err := os.WriteFile(s.path(state.ExecutionID), data, 0644); err != nil {
		return fmt.Errorf("failed to write checkpoint file: %w", err)
	}

	return nil
}

// Load retrieves the run state from its checkpoint file.
func (s *Store) Load(ctx context.Context, executionID string) (*domain.State, error) {
	if executionID == "" {
		return nil, fmt.Errorf("execution id cannot be empty")
	}

	data, err := os.ReadFile(s.path(executionID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrCheckpointNotFound
		}
		return nil, fmt.Errorf("failed to read checkpoint file: %w", err)
	}

	var state domain.State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal checkpoint: %w", err)
	}

	return &state, nil
}

// Delete removes the checkpoint file. Missing files are not an error.
func (s *Store) Delete(ctx context.Context, executionID string) error {
	err := os.Remove(s.path(executionID))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete checkpoint file: %w", err)
	}
	return nil
}

// List enumerates execution IDs from the checkpoint directory.
func (s *Store) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read checkpoint directory: %w", err)
	}

	var ids []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ext) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(entry.Name(), ext))
	}
	return ids, nil
}

func (s *Store) path(executionID string) string {
	return filepath.Join(s.Dir, executionID+ext)
}
