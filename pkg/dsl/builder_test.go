package dsl_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/dsl"
	"github.com/aretw0/espalier/pkg/engine"
	"github.com/aretw0/espalier/pkg/nodes"
)

func step(id string, visits *[]string, update map[string]any) domain.Node {
	return nodes.Func(id, func(ctx context.Context, ec *domain.ExecContext) (*domain.Result, error) {
		if visits != nil {
			*visits = append(*visits, id)
		}
		return &domain.Result{Update: update}, nil
	})
}

func boolSchema(keys ...string) domain.Schema {
	s := domain.Schema{}
	for _, k := range keys {
		s[k] = domain.Annotate(false, nil)
	}
	return s
}

func when(key string) domain.EdgeCondition {
	return func(ec *domain.ExecContext) bool { return ec.State.GetBool(key) }
}

func TestBuilder_LinearChain(t *testing.T) {
	var visits []string
	g, err := dsl.New(nil).
		Start(step("a", &visits, nil)).
		Then(step("b", &visits, nil)).
		Then(step("c", &visits, nil)).
		End().
		Compile()
	require.NoError(t, err)

	assert.Equal(t, "a", g.Start())
	assert.True(t, g.IsTerminal("c"))

	final, err := g.Execute(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, final.Status)
	assert.Equal(t, []string{"a", "b", "c"}, visits)
}

func TestBuilder_IfElseTakesOneBranch(t *testing.T) {
	build := func(visits *[]string) *dsl.Builder {
		return dsl.New(boolSchema("ready")).
			Start(step("check", visits, nil)).
			If(when("ready")).
			Then(step("go", visits, nil)).
			Else().
			Then(step("hold", visits, nil)).
			EndIf().
			Then(step("report", visits, nil)).
			End()
	}

	t.Run("true branch", func(t *testing.T) {
		var visits []string
		g, err := build(&visits).Compile()
		require.NoError(t, err)

		_, err = g.Execute(context.Background(), map[string]any{"ready": true})
		require.NoError(t, err)
		assert.Equal(t, []string{"check", "go", "report"}, visits)
	})

	t.Run("false branch", func(t *testing.T) {
		var visits []string
		g, err := build(&visits).Compile()
		require.NoError(t, err)

		_, err = g.Execute(context.Background(), map[string]any{"ready": false})
		require.NoError(t, err)
		assert.Equal(t, []string{"check", "hold", "report"}, visits)
	})
}

func TestBuilder_EndIfReconvergesBothBranches(t *testing.T) {
	// The node after EndIf must carry an incoming edge from the tip of each
	// branch, not just the one most recently built.
	g, err := dsl.New(boolSchema("ready")).
		Start(step("check", nil, nil)).
		If(when("ready")).
		Then(step("go", nil, nil)).
		Else().
		Then(step("hold", nil, nil)).
		EndIf().
		Then(step("report", nil, nil)).
		End().
		Compile()
	require.NoError(t, err)

	var intoReport []string
	for _, e := range g.Edges() {
		if e.To == "report" {
			intoReport = append(intoReport, e.From)
		}
	}
	assert.ElementsMatch(t, []string{"go", "hold"}, intoReport)
}

func TestBuilder_IfWithoutElse(t *testing.T) {
	// Without an Else the false path skips straight from the implicit
	// decision node to the reconvergence point.
	run := func(ready bool) []string {
		var visits []string
		g, err := dsl.New(boolSchema("ready")).
			Start(step("check", &visits, nil)).
			If(when("ready")).
			Then(step("extra", &visits, nil)).
			EndIf().
			Then(step("report", &visits, nil)).
			End().
			Compile()
		require.NoError(t, err)
		_, err = g.Execute(context.Background(), map[string]any{"ready": ready})
		require.NoError(t, err)
		return visits
	}

	assert.Equal(t, []string{"check", "extra", "report"}, run(true))
	assert.Equal(t, []string{"check", "report"}, run(false))
}

func TestBuilder_NestedIf(t *testing.T) {
	run := func(outer, inner bool) []string {
		var visits []string
		g, err := dsl.New(boolSchema("outer", "inner")).
			Start(step("begin", &visits, nil)).
			If(when("outer")).
			If(when("inner")).
			Then(step("both", &visits, nil)).
			Else().
			Then(step("outer-only", &visits, nil)).
			EndIf().
			Else().
			Then(step("neither", &visits, nil)).
			EndIf().
			Then(step("join", &visits, nil)).
			End().
			Compile()
		require.NoError(t, err)
		_, err = g.Execute(context.Background(), map[string]any{"outer": outer, "inner": inner})
		require.NoError(t, err)
		return visits
	}

	assert.Equal(t, []string{"begin", "both", "join"}, run(true, true))
	assert.Equal(t, []string{"begin", "outer-only", "join"}, run(true, false))
	assert.Equal(t, []string{"begin", "neither", "join"}, run(false, true))
}

func TestBuilder_CatchAndRetryAttachToLastNode(t *testing.T) {
	attempts := 0
	var visits []string

	g, err := dsl.New(nil).
		Start(step("begin", &visits, nil)).
		Then(nodes.Func("fragile", func(ctx context.Context, ec *domain.ExecContext) (*domain.Result, error) {
			attempts++
			return nil, assertErr("always fails")
		})).
		Retry(domain.RetryPolicy{MaxAttempts: 2}).
		Catch(func(ctx context.Context, ec *domain.ExecContext, err error) (*domain.Result, error) {
			return &domain.Result{Route: domain.Goto("cleanup")}, nil
		}).
		Then(step("happy", &visits, nil)).
		Then(step("cleanup", &visits, nil)).
		End("happy", "cleanup").
		Compile()
	require.NoError(t, err)

	final, err := g.Execute(context.Background(), nil)
	require.NoError(t, err)

	// Retry wrapped the node (two attempts), then the catch handler's goto
	// skipped the happy path.
	assert.Equal(t, 2, attempts)
	assert.Equal(t, []string{"begin", "cleanup"}, visits)
	assert.Equal(t, domain.StatusCompleted, final.Status)
}

func TestBuilder_MisuseReportedAtCompile(t *testing.T) {
	_, err := dsl.New(nil).Then(step("b", nil, nil)).Compile()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "before Start")

	_, err = dsl.New(nil).Start(step("a", nil, nil)).Else().Compile()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "without matching If")

	_, err = dsl.New(nil).
		Start(step("a", nil, nil)).
		If(func(ec *domain.ExecContext) bool { return true }).
		Then(step("b", nil, nil)).
		Compile()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unclosed If")
}

func TestBuilder_UserNodeClashesWithDecisionID(t *testing.T) {
	// The first If registers a node named decision_1; a user node with the
	// same id gets a pointed error, not a bare duplicate-id complaint.
	_, err := dsl.New(boolSchema("ready")).
		Start(step("decision_1", nil, nil)).
		If(when("ready")).
		Then(step("go", nil, nil)).
		EndIf().
		End().
		Compile()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"decision_1"`)
	assert.Contains(t, err.Error(), "If block")
}

func TestBuilder_SpecRegistersInLibrary(t *testing.T) {
	spec, err := dsl.New(nil).
		Start(step("inner", nil, nil)).
		End().
		Spec()
	require.NoError(t, err)

	lib := engine.NewLibrary()
	require.NoError(t, lib.Register("inner-flow", spec))

	g, err := dsl.New(nil).
		Start(step("outer", nil, nil)).
		Then(nodes.Subgraph("call", domain.SubgraphSpec{Ref: "inner-flow"})).
		End().
		Compile(engine.WithLibrary(lib))
	require.NoError(t, err)

	final, err := g.Execute(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, final.Status)
}

type assertErr string

func (e assertErr) Error() string { return string(e) }
