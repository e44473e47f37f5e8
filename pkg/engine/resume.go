package engine

import (
	"context"
	"fmt"

	"github.com/aretw0/espalier/pkg/domain"
)

// Resume loads a suspended run from the configured checkpointer, merges the
// provided answer into the state, and continues draining the saved frontier.
// Completed nodes are not re-executed.
func (g *CompiledGraph) Resume(ctx context.Context, executionID string, answer map[string]any, opts ...RunOption) (*domain.State, error) {
	state, ro, err := g.loadRun(ctx, executionID, answer, opts)
	if err != nil {
		return nil, err
	}
	return g.run(ctx, state, ro, nil)
}

// ResumeStream is Resume with step-by-step delivery, matching Stream.
func (g *CompiledGraph) ResumeStream(ctx context.Context, executionID string, answer map[string]any, opts ...RunOption) (<-chan Step, error) {
	state, ro, err := g.loadRun(ctx, executionID, answer, opts)
	if err != nil {
		return nil, err
	}
	return g.stream(ctx, state, ro), nil
}

func (g *CompiledGraph) loadRun(ctx context.Context, executionID string, answer map[string]any, opts []RunOption) (*domain.State, runOptions, error) {
	ro := runOptions{executionID: executionID}
	for _, opt := range opts {
		opt(&ro)
	}
	if g.cfg.checkpointer == nil {
		return nil, ro, fmt.Errorf("cannot resume %s: no checkpointer configured", executionID)
	}

	state, err := g.cfg.checkpointer.Load(ctx, executionID)
	if err != nil {
		return nil, ro, fmt.Errorf("failed to load checkpoint for %s: %w", executionID, err)
	}

	switch state.Status {
	case domain.StatusCompleted:
		return nil, ro, fmt.Errorf("cannot resume %s: run already completed", executionID)
	case domain.StatusSuspended, domain.StatusActive, domain.StatusFailed:
		// A failed or aborted run resumes from its last good checkpoint.
	default:
		return nil, ro, fmt.Errorf("cannot resume %s: unknown status %q", executionID, state.Status)
	}

	state.Values = g.mergeUpdate(state.Values, answer, "resume input")
	state.Status = domain.StatusActive
	state.Waiting = nil

	g.cfg.logger.Info("run resumed", "execution_id", executionID, "frontier", state.Frontier)
	return state, ro, nil
}
