package nodes

import (
	"context"
	"fmt"

	"github.com/aretw0/espalier/pkg/domain"
)

// DecideFunc picks the next node ID(s) from the current state. It must be
// pure: no state mutation, no side effects.
type DecideFunc func(ec *domain.ExecContext) ([]string, error)

// Decision builds a pure routing node. Its result carries an explicit goto
// and never a state update.
func Decision(id string, decide DecideFunc) domain.Node {
	return domain.Node{
		ID:   id,
		Type: domain.NodeTypeDecision,
		Execute: func(ctx context.Context, ec *domain.ExecContext) (*domain.Result, error) {
			targets, err := decide(ec)
			if err != nil {
				return nil, err
			}
			if len(targets) == 0 {
				return nil, fmt.Errorf("decision %q selected no target", id)
			}
			return &domain.Result{Route: domain.Goto(targets...)}, nil
		},
	}
}

// DecideOne adapts a single-target chooser to a DecideFunc.
func DecideOne(choose func(ec *domain.ExecContext) (string, error)) DecideFunc {
	return func(ec *domain.ExecContext) ([]string, error) {
		target, err := choose(ec)
		if err != nil {
			return nil, err
		}
		return []string{target}, nil
	}
}
