// Package http exposes a compiled workflow over a REST surface: start runs,
// resume suspended ones, and inspect checkpoints.
package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aretw0/espalier/internal/presentation/graph"
	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/engine"
	"github.com/aretw0/espalier/pkg/ports"
)

// Server serves one compiled workflow.
type Server struct {
	graph    *engine.CompiledGraph
	store    ports.Checkpointer
	logger   *slog.Logger
	gatherer prometheus.Gatherer
}

// Option configures the server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithMetrics exposes a Prometheus registry at /metrics.
func WithMetrics(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

// NewHandler builds the HTTP handler. The checkpointer is the one the graph
// was compiled with; it backs the run listing and resume endpoints.
func NewHandler(g *engine.CompiledGraph, store ports.Checkpointer, opts ...Option) http.Handler {
	s := &Server{graph: g, store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Get("/healthz", s.handleHealth)
	r.Get("/graph/mermaid", s.handleMermaid)
	r.Route("/runs", func(r chi.Router) {
		r.Post("/", s.handleStart)
		r.Get("/", s.handleList)
		r.Get("/{id}", s.handleGet)
		r.Delete("/{id}", s.handleDelete)
		r.Post("/{id}/resume", s.handleResume)
	})
	if s.gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return enableCORS(r)
}

type startRequest struct {
	ExecutionID string         `json:"execution_id,omitempty"`
	Input       map[string]any `json:"input,omitempty"`
}

type resumeRequest struct {
	Input map[string]any `json:"input,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var opts []engine.RunOption
	if req.ExecutionID != "" {
		opts = append(opts, engine.WithExecutionID(req.ExecutionID))
	}

	state, err := s.graph.Execute(r.Context(), req.Input, opts...)
	s.writeRunOutcome(w, state, err)
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	var req resumeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	state, err := s.graph.Resume(r.Context(), chi.URLParam(r, "id"), req.Input)
	if err != nil && errors.Is(err, domain.ErrCheckpointNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	s.writeRunOutcome(w, state, err)
}

// writeRunOutcome maps a run result to a response: 200 for completed, 202
// for suspended, 500 with the last state for failed.
func (s *Server) writeRunOutcome(w http.ResponseWriter, state *domain.State, err error) {
	if err != nil {
		s.logger.Error("run failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error": err.Error(),
			"state": state,
		})
		return
	}
	status := http.StatusOK
	if state.Status == domain.StatusSuspended {
		status = http.StatusAccepted
	}
	writeJSON(w, status, state)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusNotImplemented, errors.New("no checkpointer configured"))
		return
	}
	ids, err := s.store.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": ids})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusNotImplemented, errors.New("no checkpointer configured"))
		return
	}
	state, err := s.store.Load(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, domain.ErrCheckpointNotFound) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusNotImplemented, errors.New("no checkpointer configured"))
		return
	}
	if err := s.store.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMermaid(w http.ResponseWriter, r *http.Request) {
	var overlay *graph.Overlay
	if id := r.URL.Query().Get("run"); id != "" && s.store != nil {
		if state, err := s.store.Load(r.Context(), id); err == nil {
			overlay = graph.OverlayFromState(state)
		}
	}
	out := graph.GenerateMermaid(s.graph.Start(), s.graph.Nodes(), s.graph.Edges(), overlay)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(out))
}

func decodeBody(r *http.Request, out any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	return json.NewDecoder(r.Body).Decode(out)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Custom-Header")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
