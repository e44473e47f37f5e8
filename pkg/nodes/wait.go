package nodes

import (
	"context"

	"github.com/aretw0/espalier/pkg/domain"
)

// Wait builds a node that suspends the run pending external input. The
// prompt is a {{ key }} template rendered against the state values. The
// node itself never mutates state; the resume input is merged by the engine.
func Wait(id, prompt string) domain.Node {
	return domain.Node{
		ID:   id,
		Type: domain.NodeTypeWait,
		Execute: func(ctx context.Context, ec *domain.ExecContext) (*domain.Result, error) {
			ec.Emit(domain.HumanInputSignal(Interpolate(prompt, ec.State.Values)))
			return &domain.Result{}, nil
		},
	}
}
