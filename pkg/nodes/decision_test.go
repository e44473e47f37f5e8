package nodes_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/nodes"
)

func TestDecision_RoutesWithoutMutatingState(t *testing.T) {
	node := nodes.Decision("route", nodes.DecideOne(func(ec *domain.ExecContext) (string, error) {
		if ec.State.GetBool("approved") {
			return "ship", nil
		}
		return "revise", nil
	}))
	assert.Equal(t, domain.NodeTypeDecision, node.Type)

	res, err := node.Execute(context.Background(), execCtx(map[string]any{"approved": true}))
	require.NoError(t, err)
	assert.Nil(t, res.Update)
	require.NotNil(t, res.Route)
	assert.Equal(t, domain.RouteGoto, res.Route.Kind)
	assert.Equal(t, []string{"ship"}, res.Route.Targets)
}

func TestDecision_Errors(t *testing.T) {
	boom := errors.New("boom")
	failing := nodes.Decision("route", func(ec *domain.ExecContext) ([]string, error) {
		return nil, boom
	})
	_, err := failing.Execute(context.Background(), execCtx(nil))
	assert.ErrorIs(t, err, boom)

	empty := nodes.Decision("route", func(ec *domain.ExecContext) ([]string, error) {
		return nil, nil
	})
	_, err = empty.Execute(context.Background(), execCtx(nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "selected no target")
}

func TestWait_EmitsRenderedPrompt(t *testing.T) {
	var signals []domain.Signal
	ec := execCtx(map[string]any{"draft": "v2"})
	ec.Emit = func(s domain.Signal) { signals = append(signals, s) }

	node := nodes.Wait("approve", "Approve {{ draft }}?")
	assert.Equal(t, domain.NodeTypeWait, node.Type)

	res, err := node.Execute(context.Background(), ec)
	require.NoError(t, err)
	assert.Nil(t, res.Update)

	require.Len(t, signals, 1)
	assert.Equal(t, domain.SignalHumanInput, signals[0].Type)
	assert.Equal(t, "Approve v2?", signals[0].Prompt())
}
