package engine

import (
	"context"

	"github.com/aretw0/espalier/pkg/domain"
)

// Step is emitted on the stream channel after every completed node.
// The final step of a run carries Err when the run failed.
type Step struct {
	// NodeID names the node that just completed ("" on a terminal
	// failure that never reached a node).
	NodeID string `json:"node_id"`

	// State is an isolated snapshot after the node's update was merged.
	State *domain.State `json:"state"`

	// Diff describes what this step changed relative to the previous one.
	Diff *domain.StateDiff `json:"diff"`

	// Signals carries the advisory signals raised during the step.
	Signals []domain.Signal `json:"signals,omitempty"`

	// Err is the terminal run error, set only on the last step.
	Err error `json:"-"`
}

// Stream runs the graph and delivers a Step after each completed node.
// The channel closes when the run finishes, suspends, or fails; cancel ctx
// to abort the run itself. The consumer only observes: once the buffer is
// full, further steps are dropped rather than stalling execution, so a
// consumer that stops reading leaves the run to finish (and checkpoint)
// on its own.
func (g *CompiledGraph) Stream(ctx context.Context, initial map[string]any, opts ...RunOption) (<-chan Step, error) {
	state, ro, err := g.newRun(initial, opts)
	if err != nil {
		return nil, err
	}
	return g.stream(ctx, state, ro), nil
}

func (g *CompiledGraph) stream(ctx context.Context, state *domain.State, ro runOptions) <-chan Step {
	ch := make(chan Step, g.cfg.streamBuffer)
	go func() {
		defer close(ch)
		yield := func(step Step) bool {
			select {
			case ch <- step:
			default:
				// Consumer is not keeping up; the run does not wait for it.
			}
			return true
		}
		final, err := g.run(ctx, state, ro, yield)
		if err != nil {
			select {
			case ch <- Step{State: final, Err: err}:
			default:
			}
		}
	}()
	return ch
}
