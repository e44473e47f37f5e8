package pretty_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aretw0/espalier/pkg/adapters/pretty"
	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrettyStore_Contract(t *testing.T) {
	store := pretty.NewStore(t.TempDir())
	ports.RunCheckpointerContract(t, store)
}

func TestPrettyStore_FileIsHumanReadable(t *testing.T) {
	dir := t.TempDir()
	store := pretty.NewStore(dir)
	ctx := context.Background()

	state := domain.NewState("run-doc", domain.Schema{})
	state.Status = domain.StatusSuspended
	state.Waiting = &domain.Waiting{NodeID: "approve", Prompt: "ship it?"}
	state.Outputs["plan"] = "draft"
	require.NoError(t, store.Save(ctx, state))

	raw, err := os.ReadFile(filepath.Join(dir, "run-doc.md"))
	require.NoError(t, err)
	doc := string(raw)

	// Header present and meaningful.
	assert.True(t, strings.HasPrefix(doc, "# Espalier Checkpoint"))
	assert.Contains(t, doc, "execution_id: run-doc")
	assert.Contains(t, doc, "status: suspended")
	assert.Contains(t, doc, "nodes_completed: 1")
	assert.Contains(t, doc, "waiting: ship it?")

	// Payload is the same fenced JSON the file store would write.
	assert.Contains(t, doc, "```json")
	assert.Contains(t, doc, `"execution_id": "run-doc"`)
}

func TestPrettyStore_MalformedFile(t *testing.T) {
	dir := t.TempDir()
	store := pretty.NewStore(dir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.md"), []byte("just prose, no payload"), 0644))

	_, err := store.Load(context.Background(), "broken")
	assert.ErrorContains(t, err, "no json block")
}
