package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchema_Defaults(t *testing.T) {
	schema := Schema{
		"plan":  Annotate("", nil),
		"tasks": Annotate([]any{}, Concat),
		"meta":  Annotate(map[string]any{"version": 1}, Merge),
	}

	a := schema.Defaults()
	b := schema.Defaults()

	assert.Equal(t, "", a["plan"])
	assert.Equal(t, []any{}, a["tasks"])

	// Defaults must not share backing storage between runs.
	a["meta"].(map[string]any)["version"] = 2
	assert.Equal(t, 1, b["meta"].(map[string]any)["version"])
}

func TestSchema_Apply_Replace(t *testing.T) {
	schema := Schema{"plan": Annotate("", nil)}

	merged, unknown := schema.Apply(map[string]any{"plan": "old"}, map[string]any{"plan": "new"})

	assert.Empty(t, unknown)
	assert.Equal(t, "new", merged["plan"])
}

func TestSchema_Apply_UnknownFieldFallsBackToReplace(t *testing.T) {
	schema := Schema{"plan": Annotate("", nil)}

	merged, unknown := schema.Apply(map[string]any{}, map[string]any{"surprise": 42})

	assert.Equal(t, []string{"surprise"}, unknown)
	assert.Equal(t, 42, merged["surprise"])
}

func TestSchema_Apply_DoesNotMutateInput(t *testing.T) {
	schema := Schema{"tasks": Annotate([]any{}, Concat)}
	values := map[string]any{"tasks": []any{"a"}}

	merged, _ := schema.Apply(values, map[string]any{"tasks": []any{"b"}})

	assert.Equal(t, []any{"a"}, values["tasks"])
	assert.Equal(t, []any{"a", "b"}, merged["tasks"])
}

func TestConcat(t *testing.T) {
	t.Run("AppendPreservesOrder", func(t *testing.T) {
		out := Concat([]any{"a", "b"}, []any{"c"})
		assert.Equal(t, []any{"a", "b", "c"}, out)
	})

	t.Run("NilExisting", func(t *testing.T) {
		out := Concat(nil, []any{"x"})
		assert.Equal(t, []any{"x"}, out)
	})

	t.Run("ScalarOperandsAreWrapped", func(t *testing.T) {
		out := Concat("a", "b")
		assert.Equal(t, []any{"a", "b"}, out)
	})

	t.Run("TypedSlice", func(t *testing.T) {
		out := Concat([]string{"a"}, []string{"b"})
		assert.Equal(t, []any{"a", "b"}, out)
	})
}

func TestMerge(t *testing.T) {
	out := Merge(
		map[string]any{"a": 1, "b": 2},
		map[string]any{"b": 3, "c": 4},
	)
	assert.Equal(t, map[string]any{"a": 1, "b": 3, "c": 4}, out)
}

func TestMergeByID(t *testing.T) {
	existing := []any{
		map[string]any{"id": "t1", "status": "pending"},
		map[string]any{"id": "t2", "status": "pending"},
	}

	t.Run("MatchingIDReplacesInPlace", func(t *testing.T) {
		update := []any{map[string]any{"id": "t1", "status": "done"}}

		out, ok := MergeByID(existing, update).([]any)
		require.True(t, ok)
		require.Len(t, out, 2)

		// Order preserved, t1 replaced in place.
		assert.Equal(t, "t1", out[0].(map[string]any)["id"])
		assert.Equal(t, "done", out[0].(map[string]any)["status"])
		assert.Equal(t, "t2", out[1].(map[string]any)["id"])
		assert.Equal(t, "pending", out[1].(map[string]any)["status"])
	})

	t.Run("NewIDAppends", func(t *testing.T) {
		update := []any{map[string]any{"id": "t3", "status": "new"}}

		out := MergeByID(existing, update).([]any)
		require.Len(t, out, 3)
		assert.Equal(t, "t3", out[2].(map[string]any)["id"])
	})

	t.Run("ItemWithoutIDAppends", func(t *testing.T) {
		out := MergeByID(existing, []any{"loose"}).([]any)
		require.Len(t, out, 3)
		assert.Equal(t, "loose", out[2])
	})

	t.Run("DoesNotMutateExisting", func(t *testing.T) {
		_ = MergeByID(existing, []any{map[string]any{"id": "t1", "status": "done"}})
		assert.Equal(t, "pending", existing[0].(map[string]any)["status"])
	})
}
