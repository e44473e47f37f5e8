package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/espalier/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunCheckpointerContract runs a suite of tests verifying that a Checkpointer
// implementation adheres to the interface contract. Every backend adapter
// reuses this suite.
func RunCheckpointerContract(t *testing.T, cp Checkpointer) {
	ctx := context.Background()
	executionID := "contract-run-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		state := domain.NewState(executionID, domain.Schema{})
		state.Values["foo"] = "bar"
		state.Values["count"] = 42
		state.Outputs["plan"] = "three steps"
		state.Frontier = []string{"implement"}
		state.Iterations["refine"] = 2

		require.NoError(t, cp.Save(ctx, state), "Save should not return error")

		loaded, err := cp.Load(ctx, executionID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, executionID, loaded.ExecutionID)
		assert.Equal(t, "bar", loaded.Values["foo"])
		assert.Equal(t, "three steps", loaded.Outputs["plan"])
		assert.Equal(t, []string{"implement"}, loaded.Frontier)
		assert.Equal(t, 2, loaded.Iterations["refine"])
		// JSON persistence may convert ints to floats; presence is the contract.
		assert.NotNil(t, loaded.Values["count"])
	})

	t.Run("Save Is Idempotent Overwrite", func(t *testing.T) {
		state := domain.NewState(executionID, domain.Schema{})
		state.Values["rev"] = "first"
		require.NoError(t, cp.Save(ctx, state))

		state.Values["rev"] = "second"
		require.NoError(t, cp.Save(ctx, state))

		loaded, err := cp.Load(ctx, executionID)
		require.NoError(t, err)
		assert.Equal(t, "second", loaded.Values["rev"])

		ids, err := cp.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, countOf(ids, executionID), "overwriting must not duplicate the id")
	})

	t.Run("Loaded State Is Isolated", func(t *testing.T) {
		state := domain.NewState(executionID, domain.Schema{})
		state.Values["foo"] = "original"
		require.NoError(t, cp.Save(ctx, state))

		loaded, err := cp.Load(ctx, executionID)
		require.NoError(t, err)
		loaded.Values["foo"] = "mutated"

		again, err := cp.Load(ctx, executionID)
		require.NoError(t, err)
		assert.Equal(t, "original", again.Values["foo"], "mutating a loaded state must not leak into the store")
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := cp.Load(ctx, "non-existent-"+executionID)
		assert.ErrorIs(t, err, domain.ErrCheckpointNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, cp.Save(ctx, domain.NewState(executionID, domain.Schema{})))

		require.NoError(t, cp.Delete(ctx, executionID))

		_, err := cp.Load(ctx, executionID)
		assert.ErrorIs(t, err, domain.ErrCheckpointNotFound, "Load after Delete should return ErrCheckpointNotFound")

		assert.NoError(t, cp.Delete(ctx, executionID), "deleting a missing checkpoint is not an error")
	})

	t.Run("List", func(t *testing.T) {
		id1 := executionID + "-1"
		id2 := executionID + "-2"
		_ = cp.Save(ctx, domain.NewState(id1, domain.Schema{}))
		_ = cp.Save(ctx, domain.NewState(id2, domain.Schema{}))

		defer func() {
			_ = cp.Delete(ctx, id1)
			_ = cp.Delete(ctx, id2)
		}()

		ids, err := cp.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, id1)
		assert.Contains(t, ids, id2)
	})
}

func countOf(ids []string, id string) int {
	n := 0
	for _, candidate := range ids {
		if candidate == id {
			n++
		}
	}
	return n
}
