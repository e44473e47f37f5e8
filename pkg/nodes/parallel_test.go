package nodes_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/nodes"
)

func branch(id string, update map[string]any) domain.Node {
	return nodes.Func(id, func(ctx context.Context, ec *domain.ExecContext) (*domain.Result, error) {
		return &domain.Result{Update: update, Output: id}, nil
	})
}

func TestParallel_AllMergesDisjointFields(t *testing.T) {
	node := nodes.Parallel("fan", []domain.Node{
		branch("left", map[string]any{"a": 1}),
		branch("right", map[string]any{"b": 2}),
	}, nodes.ParallelConfig{})

	ec := execCtx(nil)
	ec.MaxConcurrency = 2

	res, err := node.Execute(context.Background(), ec)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": 1, "b": 2}, res.Update)
	assert.Equal(t, map[string]any{"left": "left", "right": "right"}, res.Output)
}

func TestParallel_SameFieldResolvesByDeclarationOrder(t *testing.T) {
	first := nodes.Func("first", func(ctx context.Context, ec *domain.ExecContext) (*domain.Result, error) {
		time.Sleep(20 * time.Millisecond) // declared first, finishes last
		return &domain.Result{Update: map[string]any{"winner": "first"}}, nil
	})
	second := branch("second", map[string]any{"winner": "second"})

	node := nodes.Parallel("fan", []domain.Node{first, second}, nodes.ParallelConfig{MaxConcurrency: 2})
	res, err := node.Execute(context.Background(), execCtx(nil))
	require.NoError(t, err)

	// Under a replace reducer the later-declared branch wins, regardless of
	// which branch completed first.
	assert.Equal(t, "second", res.Update["winner"])
}

func TestParallel_SameFieldCombinesViaReducer(t *testing.T) {
	node := nodes.Parallel("fan", []domain.Node{
		branch("left", map[string]any{"log": []any{"left"}}),
		branch("right", map[string]any{"log": []any{"right"}}),
	}, nodes.ParallelConfig{MaxConcurrency: 2})

	state := domain.NewState("run", domain.Schema{})
	ec := domain.NewExecContext(state, domain.Schema{"log": domain.Annotate([]any{}, domain.Concat)}, nil, nil)
	ec.MaxConcurrency = 2

	res, err := node.Execute(context.Background(), ec)
	require.NoError(t, err)
	assert.Equal(t, []any{"left", "right"}, res.Update["log"])
}

func TestParallel_ChildrenSeeIdenticalSnapshot(t *testing.T) {
	seen := make([]string, 2)
	mk := func(i int) domain.Node {
		return nodes.Func("child", func(ctx context.Context, ec *domain.ExecContext) (*domain.Result, error) {
			seen[i] = ec.State.GetString("base")
			// Writes to the snapshot must not leak to siblings.
			ec.State.Values["base"] = "mutated"
			return &domain.Result{}, nil
		})
	}
	node := nodes.Parallel("fan", []domain.Node{mk(0), mk(1)}, nodes.ParallelConfig{MaxConcurrency: 1})

	ec := execCtx(map[string]any{"base": "v0"})
	_, err := node.Execute(context.Background(), ec)
	require.NoError(t, err)
	assert.Equal(t, []string{"v0", "v0"}, seen)
	assert.Equal(t, "v0", ec.State.GetString("base"))
}

func TestParallel_AllPropagatesBranchFailure(t *testing.T) {
	boom := errors.New("boom")
	node := nodes.Parallel("fan", []domain.Node{
		branch("ok", nil),
		nodes.Func("bad", func(ctx context.Context, ec *domain.ExecContext) (*domain.Result, error) {
			return nil, boom
		}),
	}, nodes.ParallelConfig{MaxConcurrency: 2})

	_, err := node.Execute(context.Background(), execCtx(nil))
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), `branch "bad"`)
}

func TestParallel_CustomMerge(t *testing.T) {
	node := nodes.Parallel("fan", []domain.Node{
		branch("left", map[string]any{"n": 1}),
		branch("right", map[string]any{"n": 2}),
	}, nodes.ParallelConfig{
		MaxConcurrency: 2,
		Merge: func(updates []map[string]any) map[string]any {
			sum := 0
			for _, u := range updates {
				sum += u["n"].(int)
			}
			return map[string]any{"n": sum}
		},
	})

	res, err := node.Execute(context.Background(), execCtx(nil))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"n": 3}, res.Update)
}

func TestParallel_FirstTakesFirstSettled(t *testing.T) {
	slow := nodes.Func("slow", func(ctx context.Context, ec *domain.ExecContext) (*domain.Result, error) {
		select {
		case <-time.After(5 * time.Second):
			return &domain.Result{Update: map[string]any{"who": "slow"}}, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})
	fast := branch("fast", map[string]any{"who": "fast"})

	node := nodes.Parallel("race", []domain.Node{slow, fast}, nodes.ParallelConfig{
		Strategy:       nodes.MergeFirst,
		MaxConcurrency: 2,
	})

	start := time.Now()
	res, err := node.Execute(context.Background(), execCtx(nil))
	require.NoError(t, err)
	assert.Equal(t, "fast", res.Update["who"])
	assert.Less(t, time.Since(start), time.Second, "losing branch must be cancelled, not awaited")
}

func TestParallel_AnyIgnoresFailuresUntilSuccess(t *testing.T) {
	node := nodes.Parallel("any", []domain.Node{
		nodes.Func("bad1", func(ctx context.Context, ec *domain.ExecContext) (*domain.Result, error) {
			return nil, errors.New("bad1")
		}),
		branch("good", map[string]any{"who": "good"}),
	}, nodes.ParallelConfig{Strategy: nodes.MergeAny, MaxConcurrency: 2})

	res, err := node.Execute(context.Background(), execCtx(nil))
	require.NoError(t, err)
	assert.Equal(t, "good", res.Update["who"])
}

func TestParallel_AnyAllFailed(t *testing.T) {
	bad := func(id string) domain.Node {
		return nodes.Func(id, func(ctx context.Context, ec *domain.ExecContext) (*domain.Result, error) {
			return nil, errors.New(id)
		})
	}
	node := nodes.Parallel("any", []domain.Node{bad("bad1"), bad("bad2")},
		nodes.ParallelConfig{Strategy: nodes.MergeAny, MaxConcurrency: 2})

	_, err := node.Execute(context.Background(), execCtx(nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all branches failed")
}

func TestParallel_ConcurrencyBound(t *testing.T) {
	var active, peak atomic.Int32
	mk := func(id string) domain.Node {
		return nodes.Func(id, func(ctx context.Context, ec *domain.ExecContext) (*domain.Result, error) {
			n := active.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			active.Add(-1)
			return &domain.Result{}, nil
		})
	}

	node := nodes.Parallel("fan",
		[]domain.Node{mk("a"), mk("b"), mk("c"), mk("d")},
		nodes.ParallelConfig{MaxConcurrency: 2})

	_, err := node.Execute(context.Background(), execCtx(nil))
	require.NoError(t, err)
	assert.LessOrEqual(t, peak.Load(), int32(2))
}
