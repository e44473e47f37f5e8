package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/espalier/pkg/adapters/memory"
	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/engine"
	"github.com/aretw0/espalier/pkg/nodes"
)

func testHandler(t *testing.T) (http.Handler, *memory.Store) {
	t.Helper()
	store := memory.NewStore()

	g, err := engine.Compile(&engine.GraphSpec{
		Start: "greet",
		Nodes: []domain.Node{
			nodes.Func("greet", func(ctx context.Context, ec *domain.ExecContext) (*domain.Result, error) {
				name := ec.State.GetString("name")
				return &domain.Result{Update: map[string]any{"greeting": "hello " + name}}, nil
			}),
			nodes.Wait("confirm", "Proceed?"),
			nodes.Func("finish", func(ctx context.Context, ec *domain.ExecContext) (*domain.Result, error) {
				return &domain.Result{Output: "done"}, nil
			}),
		},
		Edges: []domain.Edge{
			{From: "greet", To: "confirm"},
			{From: "confirm", To: "finish"},
		},
		Terminals: []string{"finish"},
		Schema: domain.Schema{
			"name":     domain.Annotate("", nil),
			"greeting": domain.Annotate("", nil),
			"answer":   domain.Annotate("", nil),
		},
	}, engine.WithCheckpointer(store))
	require.NoError(t, err)

	return NewHandler(g, store), store
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestServer_StartSuspendResume(t *testing.T) {
	h, _ := testHandler(t)

	rec := doJSON(t, h, http.MethodPost, "/runs", startRequest{
		ExecutionID: "run-http",
		Input:       map[string]any{"name": "world"},
	})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var suspended domain.State
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &suspended))
	assert.Equal(t, domain.StatusSuspended, suspended.Status)
	assert.Equal(t, "hello world", suspended.Values["greeting"])
	require.NotNil(t, suspended.Waiting)
	assert.Equal(t, "confirm", suspended.Waiting.NodeID)

	rec = doJSON(t, h, http.MethodPost, "/runs/run-http/resume", resumeRequest{
		Input: map[string]any{"answer": "yes"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var final domain.State
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &final))
	assert.Equal(t, domain.StatusCompleted, final.Status)
	assert.Equal(t, "yes", final.Values["answer"])
}

func TestServer_ListGetDelete(t *testing.T) {
	h, _ := testHandler(t)

	rec := doJSON(t, h, http.MethodPost, "/runs", startRequest{ExecutionID: "run-a"})
	require.Equal(t, http.StatusAccepted, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/runs", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "run-a")

	rec = doJSON(t, h, http.MethodGet, "/runs/run-a", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodDelete, "/runs/run-a", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/runs/run-a", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_ResumeUnknownRun(t *testing.T) {
	h, _ := testHandler(t)
	rec := doJSON(t, h, http.MethodPost, "/runs/ghost/resume", resumeRequest{})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_Mermaid(t *testing.T) {
	h, _ := testHandler(t)
	rec := doJSON(t, h, http.MethodGet, "/graph/mermaid", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "graph TD"))
	assert.Contains(t, rec.Body.String(), `confirm[/"confirm"/]`)
}

func TestServer_Health(t *testing.T) {
	h, _ := testHandler(t)
	rec := doJSON(t, h, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}
