package nodes

import (
	"context"
	"fmt"

	"github.com/aretw0/espalier/pkg/domain"
)

// UntilFunc decides whether a loop is done. Evaluated against the state
// after each iteration's update has been applied.
type UntilFunc func(state *domain.State) bool

// LoopConfig configures a loop wrapper.
type LoopConfig struct {
	// Until stops the loop once it returns true. Nil loops until
	// MaxIterations.
	Until UntilFunc

	// MaxIterations caps the loop regardless of Until. Required, positive.
	MaxIterations int
}

// Loop wraps body nodes in an iterating node. Each frontier visit runs the
// body sequence once against progressively updated state, advances the
// iteration counter, and either re-queues itself (via goto) or falls through
// to its outgoing edges.
//
// One iteration per frontier step keeps the counter in checkpointed state,
// so a resumed run continues mid-loop instead of starting over.
func Loop(id string, cfg LoopConfig, body ...domain.Node) domain.Node {
	return domain.Node{
		ID:   id,
		Type: domain.NodeTypeLoop,
		Execute: func(ctx context.Context, ec *domain.ExecContext) (*domain.Result, error) {
			if cfg.MaxIterations <= 0 {
				return nil, fmt.Errorf("loop %q has no iteration cap", id)
			}
			if len(body) == 0 {
				return nil, fmt.Errorf("loop %q has no body", id)
			}

			iteration := ec.State.Iterations[id]
			if iteration >= cfg.MaxIterations {
				// A resumed checkpoint may land exactly on the cap.
				return &domain.Result{}, nil
			}

			// Body nodes run sequentially; each sees the previous updates,
			// applied through the same reducers the executor uses.
			working := ec.State.Clone()
			combined := make(map[string]any)
			outputs := make(map[string]any, len(body))
			var signals []domain.Signal

			for _, node := range body {
				if err := ctx.Err(); err != nil {
					return nil, &domain.AbortError{NodeID: node.ID, Err: err}
				}

				bodyEC := domain.NewExecContext(working.Clone(), ec.Schema, ec.Config, ec.Emit)
				bodyEC.MaxConcurrency = ec.MaxConcurrency

				res, err := node.Execute(ctx, bodyEC)
				if err != nil {
					return nil, fmt.Errorf("loop %q iteration %d, node %q: %w", id, iteration+1, node.ID, err)
				}
				if res == nil {
					continue
				}
				working.Values, _ = ec.Schema.Apply(working.Values, res.Update)
				combined = foldInto(ec.Schema, combined, res.Update)
				if res.Output != nil {
					outputs[node.ID] = res.Output
				}
				signals = append(signals, res.Signals...)
			}

			iteration++
			result := &domain.Result{
				Update:     combined,
				Output:     outputs,
				Signals:    signals,
				Iterations: map[string]int{id: iteration},
			}

			done := iteration >= cfg.MaxIterations
			if !done && cfg.Until != nil {
				if working.Iterations == nil {
					working.Iterations = make(map[string]int)
				}
				working.Iterations[id] = iteration
				done = cfg.Until(working)
			}
			if !done {
				result.Route = domain.Goto(id)
			}
			return result, nil
		},
	}
}

// foldInto merges one update into an accumulated update through the schema
// reducers, mirroring foldUpdates for the incremental case.
func foldInto(schema domain.Schema, combined, update map[string]any) map[string]any {
	for k, v := range update {
		prev, seen := combined[k]
		if !seen {
			combined[k] = v
			continue
		}
		if ann, ok := schema[k]; ok && ann.Reducer != nil {
			combined[k] = ann.Reducer(prev, v)
			continue
		}
		combined[k] = v
	}
	return combined
}
