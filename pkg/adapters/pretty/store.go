// Package pretty provides a human-readable Checkpointer variant.
// It writes the same JSON payload as the file store, wrapped with a short
// YAML metadata header so checkpoints can be inspected (and diffed) by hand.
package pretty

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/espalier/pkg/domain"
	"gopkg.in/yaml.v3"
)

const ext = ".md"

// header is the YAML metadata written above the payload. It is advisory
// only: Load ignores it and reads the fenced JSON block.
type header struct {
	ExecutionID    string `yaml:"execution_id"`
	Status         string `yaml:"status"`
	LastUpdated    string `yaml:"last_updated"`
	NodesCompleted int    `yaml:"nodes_completed"`
	Waiting        string `yaml:"waiting,omitempty"`
}

// Store implements ports.Checkpointer with human-readable markdown files.
type Store struct {
	Dir string
}

// NewStore creates a new human-readable store rooted at dir.
// If dir is empty, it defaults to ".espalier/checkpoints".
func NewStore(dir string) *Store {
	if dir == "" {
		dir = filepath.Join(".espalier", "checkpoints")
	}
	return &Store{Dir: dir}
}

// Save persists the run state to <dir>/<executionID>.md.
func (s *Store) Save(ctx context.Context, state *domain.State) error {
	if state.ExecutionID == "" {
		return fmt.Errorf("execution id cannot be empty")
	}

	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return fmt.Errorf("failed to ensure checkpoint directory: %w", err)
	}

	payload, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	meta := header{
		ExecutionID:    state.ExecutionID,
		Status:         string(state.Status),
		LastUpdated:    state.LastUpdated.Format("2006-01-02 15:04:05 MST"),
		NodesCompleted: len(state.Outputs),
	}
	if state.Waiting != nil {
		meta.Waiting = state.Waiting.Prompt
	}
	metaYAML, err := yaml.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to marshal header: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("# Espalier Checkpoint\n\n")
	sb.WriteString("```yaml\n")
	sb.Write(metaYAML)
	sb.WriteString("```\n\n")
	sb.WriteString("```json\n")
	sb.Write(payload)
	sb.WriteString("\n```\n")

	if err := os.WriteFile(s.path(state.ExecutionID), []byte(sb.String()), 0644); err != nil {
		return fmt.Errorf("failed to write checkpoint file: %w", err)
	}
	return nil
}

// Load extracts the fenced JSON payload and unmarshals it.
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

	payload, err := extractFencedJSON(string(data))
	if err != nil {
		return nil, fmt.Errorf("malformed checkpoint %q: %w", executionID, err)
	}

	var state domain.State
	if err := json.Unmarshal([]byte(payload), &state); err != nil {
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

// extractFencedJSON pulls the contents of the first ```json fence.
func extractFencedJSON(doc string) (string, error) {
	const open = "```json\n"
	start := strings.Index(doc, open)
	if start == -1 {
		return "", fmt.Errorf("no json block found")
	}
	rest := doc[start+len(open):]

	end := strings.Index(rest, "\n```")
	if end == -1 {
		return "", fmt.Errorf("unterminated json block")
	}
	return rest[:end], nil
}
