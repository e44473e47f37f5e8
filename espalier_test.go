package espalier_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/espalier"
	"github.com/aretw0/espalier/pkg/adapters/memory"
	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/engine"
	"github.com/aretw0/espalier/pkg/nodes"
	"github.com/aretw0/espalier/pkg/ports"
	"github.com/aretw0/espalier/pkg/registry"
)

// scriptedClient plays a fixed response per session, in order.
type scriptedClient struct {
	responses []string
	calls     int
}

func (c *scriptedClient) CreateSession(ctx context.Context, cfg ports.SessionConfig) (ports.Session, error) {
	call := c.calls
	c.calls++
	text := "done"
	if call < len(c.responses) {
		text = c.responses[call]
	}
	return &scriptedSession{text: text}, nil
}

type scriptedSession struct {
	text string
}

func (s *scriptedSession) Send(ctx context.Context, text string) error { return nil }

func (s *scriptedSession) Stream(ctx context.Context) (<-chan ports.Chunk, error) {
	ch := make(chan ports.Chunk, 1)
	ch <- ports.Chunk{Content: s.text, Final: true}
	close(ch)
	return ch, nil
}

func (s *scriptedSession) Destroy(ctx context.Context) error { return nil }

// TestScenario_PlanLoopFinish covers the canonical shape:
// plan -> loop(implement, until allDone, max 5) -> finish.
// The implement agent flips allDone on its 3rd invocation, so the loop runs
// exactly 3 iterations (2 re-entries plus the one that sets the flag).
func TestScenario_PlanLoopFinish(t *testing.T) {
	schema := domain.Schema{
		"plan":     domain.Annotate("", nil),
		"all_done": domain.Annotate(false, nil),
		"work":     domain.Annotate([]any{}, domain.Concat),
		"report":   domain.Annotate("", nil),
	}

	planClient := &scriptedClient{responses: []string{"1. prune 2. tie 3. water"}}

	implementInvocations := 0
	implement := nodes.Func("implement", func(ctx context.Context, ec *domain.ExecContext) (*domain.Result, error) {
		implementInvocations++
		update := map[string]any{"work": []any{implementInvocations}}
		if implementInvocations == 3 {
			update["all_done"] = true
		}
		return &domain.Result{Update: update}, nil
	})

	finishInvocations := 0
	reg := registry.New()
	reg.RegisterTool("finish", func(ctx context.Context, args map[string]any) (any, error) {
		finishInvocations++
		return "report written", nil
	})

	g, err := espalier.NewBuilder(schema).
		Start(nodes.Agent("plan", nodes.AgentConfig{
			Client:    planClient,
			Prompt:    "Plan the work.",
			OutputKey: "plan",
		})).
		Loop("build", nodes.LoopConfig{
			Until:         func(s *domain.State) bool { return s.GetBool("all_done") },
			MaxIterations: 5,
		}, implement).
		Then(nodes.Tool("finish", nodes.ToolConfig{
			Registry:  reg,
			OutputKey: "report",
		})).
		End().
		Compile()
	require.NoError(t, err)

	final, err := g.Execute(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, domain.StatusCompleted, final.Status)
	assert.Equal(t, 1, planClient.calls)
	assert.Equal(t, 3, implementInvocations)
	assert.Equal(t, 3, final.Iterations["build"])
	assert.Equal(t, 1, finishInvocations)
	assert.Equal(t, "1. prune 2. tie 3. water", final.Values["plan"])
	assert.Equal(t, []any{1, 2, 3}, final.Values["work"])
	assert.Equal(t, "report written", final.Values["report"])
}

// TestScenario_WaitSuspendResume covers the human-in-the-loop shape: a wait
// node suspends the run; resume merges the supplied answer and continues.
func TestScenario_WaitSuspendResume(t *testing.T) {
	store := memory.NewStore()
	schema := domain.Schema{
		"draft":  domain.Annotate("", nil),
		"answer": domain.Annotate("", nil),
		"result": domain.Annotate("", nil),
	}

	g, err := espalier.NewBuilder(schema).
		Start(nodes.Func("draft", func(ctx context.Context, ec *domain.ExecContext) (*domain.Result, error) {
			return &domain.Result{Update: map[string]any{"draft": "v1"}}, nil
		})).
		Wait("approve", "Ship {{ draft }}?").
		Then(nodes.Func("publish", func(ctx context.Context, ec *domain.ExecContext) (*domain.Result, error) {
			return &domain.Result{Update: map[string]any{
				"result": "published with answer " + ec.State.GetString("answer"),
			}}, nil
		})).
		End().
		Compile(engine.WithCheckpointer(store))
	require.NoError(t, err)

	suspended, err := g.Execute(context.Background(), nil, engine.WithExecutionID("release-1"))
	require.NoError(t, err)

	assert.Equal(t, domain.StatusSuspended, suspended.Status)
	require.NotNil(t, suspended.Waiting)
	assert.Equal(t, "approve", suspended.Waiting.NodeID)
	assert.Equal(t, "Ship v1?", suspended.Waiting.Prompt)

	final, err := g.Resume(context.Background(), "release-1", map[string]any{"answer": "yes"})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusCompleted, final.Status)
	assert.Equal(t, "yes", final.Values["answer"])
	assert.Equal(t, "published with answer yes", final.Values["result"])
}
