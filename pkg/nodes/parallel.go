package nodes

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/aretw0/espalier/pkg/domain"
)

// MergeStrategy selects how a parallel node settles its branches.
type MergeStrategy string

const (
	// MergeAll waits for every branch; any branch failure propagates.
	MergeAll MergeStrategy = "all"
	// MergeFirst races the branches; the first settled result (success or
	// failure) wins and the rest are cancelled.
	MergeFirst MergeStrategy = "first"
	// MergeAny takes the first success; branch failures are ignored unless
	// every branch fails.
	MergeAny MergeStrategy = "any"
)

// MergeFunc combines the branch updates (in branch declaration order) into
// one partial update. Only consulted under the "all" strategy.
type MergeFunc func(updates []map[string]any) map[string]any

// ParallelConfig configures a parallel node.
type ParallelConfig struct {
	// Strategy defaults to MergeAll.
	Strategy MergeStrategy

	// Merge overrides the default combination of branch updates.
	Merge MergeFunc

	// MaxConcurrency bounds the fan-out. Zero defers to the engine's bound.
	MaxConcurrency int
}

type branchResult struct {
	index  int
	result *domain.Result
	err    error
}

// Parallel builds a node that executes child nodes concurrently against the
// same pre-fan-out state snapshot. Children never observe each other's
// updates; their partial updates combine only when the parallel node's own
// result merges.
//
// Under the default merge, branch updates fold in declaration order through
// the schema reducers, so two branches writing the same annotated field
// combine via that field's reducer; under a replace reducer the
// later-declared branch wins. The tie-break is declaration order, never
// completion order.
func Parallel(id string, children []domain.Node, cfg ParallelConfig) domain.Node {
	strategy := cfg.Strategy
	if strategy == "" {
		strategy = MergeAll
	}
	return domain.Node{
		ID:   id,
		Type: domain.NodeTypeParallel,
		Execute: func(ctx context.Context, ec *domain.ExecContext) (*domain.Result, error) {
			if len(children) == 0 {
				return &domain.Result{}, nil
			}

			bound := cfg.MaxConcurrency
			if bound <= 0 {
				bound = ec.MaxConcurrency
			}
			if bound <= 0 {
				bound = 1
			}

			branchCtx, cancel := context.WithCancel(ctx)
			defer cancel()

			// Emit callbacks may fire concurrently from sibling branches.
			var emitMu sync.Mutex
			emit := func(s domain.Signal) {
				emitMu.Lock()
				defer emitMu.Unlock()
				ec.Emit(s)
			}

			results := make(chan branchResult, len(children))
			sem := make(chan struct{}, bound)
			for i := range children {
				go func(i int, child domain.Node) {
					select {
					case sem <- struct{}{}:
						defer func() { <-sem }()
					case <-branchCtx.Done():
						results <- branchResult{index: i, err: &domain.AbortError{NodeID: child.ID, Err: branchCtx.Err()}}
						return
					}

					// Each branch gets its own snapshot of the pre-fan-out state.
					childEC := domain.NewExecContext(ec.State.Clone(), ec.Schema, ec.Config, emit)
					childEC.MaxConcurrency = ec.MaxConcurrency

					res, err := child.Execute(branchCtx, childEC)
					if err != nil {
						results <- branchResult{index: i, err: fmt.Errorf("branch %q: %w", child.ID, err)}
						return
					}
					results <- branchResult{index: i, result: res}
				}(i, children[i])
			}

			switch strategy {
			case MergeFirst:
				return settleFirst(ctx, cancel, results)
			case MergeAny:
				return settleAny(ctx, id, cancel, results, len(children))
			default:
				return settleAll(ctx, ec, cfg.Merge, children, results)
			}
		},
	}
}

// settleAll waits for every branch and folds the updates deterministically.
func settleAll(ctx context.Context, ec *domain.ExecContext, merge MergeFunc, children []domain.Node, results chan branchResult) (*domain.Result, error) {
	collected := make([]*domain.Result, len(children))
	var firstErr error
	firstErrIdx := len(children)

	for range children {
		select {
		case br := <-results:
			if br.err != nil {
				// The earliest-declared failing branch is the one reported.
				if br.index < firstErrIdx {
					firstErr, firstErrIdx = br.err, br.index
				}
				continue
			}
			collected[br.index] = br.result
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if firstErr != nil {
		return nil, firstErr
	}

	updates := make([]map[string]any, 0, len(collected))
	outputs := make(map[string]any, len(collected))
	var signals []domain.Signal
	for i, res := range collected {
		if res == nil {
			continue
		}
		if res.Update != nil {
			updates = append(updates, res.Update)
		}
		outputs[children[i].ID] = res.Output
		signals = append(signals, res.Signals...)
	}

	var update map[string]any
	if merge != nil {
		update = merge(updates)
	} else {
		update = foldUpdates(ec.Schema, updates)
	}
	return &domain.Result{Update: update, Output: outputs, Signals: signals}, nil
}

// settleFirst returns the first settled branch, success or failure.
func settleFirst(ctx context.Context, cancel context.CancelFunc, results chan branchResult) (*domain.Result, error) {
	select {
	case br := <-results:
		cancel()
		if br.err != nil {
			return nil, br.err
		}
		return br.result, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// settleAny returns the first success, or an aggregate error when every
// branch failed.
func settleAny(ctx context.Context, id string, cancel context.CancelFunc, results chan branchResult, n int) (*domain.Result, error) {
	var errs []error
	for i := 0; i < n; i++ {
		select {
		case br := <-results:
			if br.err != nil {
				errs = append(errs, br.err)
				continue
			}
			cancel()
			return br.result, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, fmt.Errorf("parallel %q: all branches failed: %w", id, errors.Join(errs...))
}

// foldUpdates combines branch updates in declaration order. A field present
// in more than one update combines through its schema reducer, so the
// single merge the executor later performs yields the same result as
// merging each branch in sequence.
func foldUpdates(schema domain.Schema, updates []map[string]any) map[string]any {
	if len(updates) == 0 {
		return nil
	}
	combined := make(map[string]any)
	for _, update := range updates {
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
	}
	return combined
}
