package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/espalier/pkg/domain"
	"github.com/google/uuid"
)

// Execute runs the graph to completion (or suspension) and returns the final
// state. Initial values are merged into the schema defaults through the
// reducers before the start node runs.
//
// A suspended run returns with Status == StatusSuspended and a nil error;
// continue it with Resume. Cancellation of ctx is cooperative: in-flight
// nodes observe it, the run stops with an AbortError, and the last
// checkpoint is preserved for resume.
func (g *CompiledGraph) Execute(ctx context.Context, initial map[string]any, opts ...RunOption) (*domain.State, error) {
	state, ro, err := g.newRun(initial, opts)
	if err != nil {
		return nil, err
	}
	return g.run(ctx, state, ro, nil)
}

// newRun builds the initial state for a fresh execution.
func (g *CompiledGraph) newRun(initial map[string]any, opts []RunOption) (*domain.State, runOptions, error) {
	ro := runOptions{}
	for _, opt := range opts {
		opt(&ro)
	}
	if ro.executionID == "" {
		ro.executionID = uuid.NewString()
	}

	state := domain.NewState(ro.executionID, g.schema)
	state.Values = g.mergeUpdate(state.Values, initial, "initial input")
	state.Frontier = []string{g.start}
	return state, ro, nil
}

// run drains the frontier. yield, when non-nil, receives a step after every
// completed node; it returns false to stop early (the run itself continues
// to be driven by its caller's context, not by the consumer).
func (g *CompiledGraph) run(ctx context.Context, state *domain.State, ro runOptions, yield func(Step) bool) (*domain.State, error) {
	if g.cfg.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.cfg.runTimeout)
		defer cancel()
	}

	// A deserialized checkpoint may carry nil maps.
	if state.Values == nil {
		state.Values = make(map[string]any)
	}
	if state.Outputs == nil {
		state.Outputs = make(map[string]any)
	}
	if state.Iterations == nil {
		state.Iterations = make(map[string]int)
	}

	// Rebuild the visited set from recorded outputs so resumed runs do not
	// re-execute completed nodes. Loop wrappers are exempt: they revisit.
	visited := make(map[string]bool)
	for id := range state.Outputs {
		if node, ok := g.nodes[id]; ok && node.Type != domain.NodeTypeLoop {
			visited[id] = true
		}
	}

	frontier := append([]string{}, state.Frontier...)

	for len(frontier) > 0 {
		if err := ctx.Err(); err != nil {
			return g.failRun(state, g.abortErr("", err))
		}

		id := frontier[0]
		frontier = frontier[1:]

		node, ok := g.nodes[id]
		if !ok {
			return g.failRun(state, &domain.NodeExecutionError{
				NodeID: id, Attempts: 0, Err: fmt.Errorf("goto target is not a registered node"),
			})
		}

		prev := state.Clone()

		// Signals emitted during execution and signals returned on the
		// result are treated alike.
		var signals []domain.Signal
		emit := func(s domain.Signal) {
			signals = append(signals, s)
			if g.cfg.hooks.OnSignal != nil {
				g.cfg.hooks.OnSignal(ctx, s)
			}
		}

		ec := domain.NewExecContext(state.Clone(), g.schema, ro.config, emit)
		ec.MaxConcurrency = g.cfg.maxConcurrency

		enterTime := time.Now()
		g.emitNodeEnter(ctx, state.ExecutionID, node)

		result, attempts, execErr := g.executeWithRetry(ctx, state.ExecutionID, node, ec)

		if execErr != nil && node.Catch != nil && !isAbort(execErr) {
			g.cfg.logger.Debug("catch handler engaged", "node", id, "err", execErr)
			caught := execErr
			result, execErr = node.Catch(ctx, ec, caught)
			if execErr == nil {
				// A recovered failure stays visible: downstream nodes read it
				// from their ExecContext's accumulated errors.
				state.Errors = append(state.Errors, domain.NodeError{
					NodeID:   id,
					Attempts: attempts,
					Message:  caught.Error(),
					Time:     time.Now().UTC(),
				})
			}
		}

		g.emitNodeLeave(ctx, state.ExecutionID, node, attempts, time.Since(enterTime), execErr)

		if execErr != nil {
			state.Errors = append(state.Errors, domain.NodeError{
				NodeID:   id,
				Attempts: attempts,
				Message:  execErr.Error(),
				Time:     time.Now().UTC(),
			})
			// The last checkpoint still reflects the last fully completed
			// node; a failed attempt is never persisted over it.
			return g.failRun(state, execErr)
		}

		if result == nil {
			result = &domain.Result{}
		}
		signals = append(signals, result.Signals...)

		// 1. Merge the partial update through the reducers.
		state.Values = g.mergeUpdate(state.Values, result.Update, id)
		state.Outputs[id] = result.Output
		for k, v := range result.Iterations {
			if v > state.Iterations[k] {
				state.Iterations[k] = v
			}
		}
		state.LastUpdated = time.Now().UTC()

		if node.Type != domain.NodeTypeLoop {
			visited[id] = true
		}

		// 2. Compute the successors: an explicit goto wins over edges.
		next, err := g.successors(id, node, result, state, ro, visited, frontier)
		if err != nil {
			return g.failRun(state, err)
		}
		frontier = append(frontier, next...)
		state.Frontier = append([]string{}, frontier...)

		// 3. Suspension: a human-input signal parks the run.
		if waiting := humanInput(signals); waiting != nil {
			state.Status = domain.StatusSuspended
			state.Waiting = &domain.Waiting{NodeID: id, Prompt: waiting.Prompt()}
		}

		// 4. Checkpoint the merged state of the fully completed node.
		if err := g.checkpoint(ctx, state, id); err != nil {
			return g.failRun(state, err)
		}

		if yield != nil {
			step := Step{
				NodeID:  id,
				State:   state.Clone(),
				Diff:    domain.Diff(prev, state),
				Signals: signals,
			}
			if !yield(step) {
				yield = nil
			}
		}

		if state.Status == domain.StatusSuspended {
			g.cfg.logger.Info("run suspended", "execution_id", state.ExecutionID, "node", id)
			return state, nil
		}
	}

	state.Status = domain.StatusCompleted
	state.Frontier = nil
	state.LastUpdated = time.Now().UTC()
	if err := g.checkpoint(ctx, state, ""); err != nil {
		return g.failRun(state, err)
	}
	g.cfg.logger.Info("run completed", "execution_id", state.ExecutionID)
	return state, nil
}

// successors resolves the tagged route of a node result.
func (g *CompiledGraph) successors(id string, node *domain.Node, result *domain.Result, state *domain.State, ro runOptions, visited map[string]bool, frontier []string) ([]string, error) {
	// Explicit goto overrides the edge set, terminal or not a factor:
	// the node asked for these targets.
	if result.Route != nil && result.Route.Kind == domain.RouteGoto {
		var next []string
		for _, target := range result.Route.Targets {
			if _, ok := g.nodes[target]; !ok {
				return nil, &domain.NodeExecutionError{
					NodeID:   id,
					Attempts: 1,
					Err:      fmt.Errorf("goto target %q is not a registered node", target),
				}
			}
			next = append(next, target)
		}
		return next, nil
	}

	// End nodes follow no edges, even if some are present.
	if g.IsTerminal(id) {
		return nil, nil
	}

	// Conditions are evaluated against the post-merge context, in edge
	// declaration order.
	postCtx := domain.NewExecContext(state.Clone(), g.schema, ro.config, nil)

	queued := make(map[string]bool, len(frontier))
	for _, f := range frontier {
		queued[f] = true
	}

	var next []string
	for _, edge := range g.edges[id] {
		if edge.Condition != nil && !edge.Condition(postCtx) {
			continue
		}
		// Already-visited ids are not re-queued via edges; loop wrappers
		// re-enter through their own goto instead.
		if visited[edge.To] || queued[edge.To] {
			continue
		}
		queued[edge.To] = true
		next = append(next, edge.To)
	}
	return next, nil
}

// mergeUpdate applies a partial update through the schema, logging a warning
// for every field that has no annotation (replace fallback).
func (g *CompiledGraph) mergeUpdate(values, update map[string]any, source string) map[string]any {
	if len(update) == 0 {
		return values
	}
	merged, unknown := g.schema.Apply(values, update)
	for _, field := range unknown {
		g.cfg.logger.Warn("state field has no annotation, falling back to replace",
			"field", field, "source", source)
	}
	return merged
}

// checkpoint persists the state when a checkpointer is configured.
func (g *CompiledGraph) checkpoint(ctx context.Context, state *domain.State, nodeID string) error {
	if g.cfg.checkpointer == nil {
		return nil
	}
	if err := g.cfg.checkpointer.Save(ctx, state); err != nil {
		return fmt.Errorf("failed to checkpoint run %s: %w", state.ExecutionID, err)
	}
	if g.cfg.hooks.OnCheckpoint != nil {
		g.cfg.hooks.OnCheckpoint(ctx, &domain.CheckpointEvent{
			Timestamp:   time.Now().UTC(),
			ExecutionID: state.ExecutionID,
			NodeID:      nodeID,
		})
	}
	return nil
}

// failRun marks the state and returns the terminal error.
func (g *CompiledGraph) failRun(state *domain.State, err error) (*domain.State, error) {
	state.Status = domain.StatusFailed
	state.LastUpdated = time.Now().UTC()
	g.cfg.logger.Error("run failed", "execution_id", state.ExecutionID, "err", err)
	return state, err
}

// abortErr distinguishes deadline expiry from cooperative cancellation.
func (g *CompiledGraph) abortErr(nodeID string, cause error) error {
	if errors.Is(cause, context.DeadlineExceeded) && g.cfg.runTimeout > 0 {
		return &domain.TimeoutError{NodeID: nodeID, Timeout: g.cfg.runTimeout, Err: cause}
	}
	return &domain.AbortError{NodeID: nodeID, Err: cause}
}

func isAbort(err error) bool {
	var abort *domain.AbortError
	return errors.As(err, &abort)
}

// humanInput returns the first human-input signal, if any.
func humanInput(signals []domain.Signal) *domain.Signal {
	for i := range signals {
		if signals[i].Type == domain.SignalHumanInput {
			return &signals[i]
		}
	}
	return nil
}

func (g *CompiledGraph) emitNodeEnter(ctx context.Context, executionID string, node *domain.Node) {
	g.cfg.logger.Debug("node enter", "execution_id", executionID, "node", node.ID, "type", node.Type)
	if g.cfg.hooks.OnNodeEnter != nil {
		g.cfg.hooks.OnNodeEnter(ctx, &domain.NodeEvent{
			Timestamp:   time.Now().UTC(),
			ExecutionID: executionID,
			NodeID:      node.ID,
			NodeType:    node.Type,
		})
	}
}

func (g *CompiledGraph) emitNodeLeave(ctx context.Context, executionID string, node *domain.Node, attempts int, duration time.Duration, err error) {
	g.cfg.logger.Debug("node leave", "execution_id", executionID, "node", node.ID, "attempts", attempts, "err", err)
	if g.cfg.hooks.OnNodeLeave != nil {
		g.cfg.hooks.OnNodeLeave(ctx, &domain.NodeEvent{
			Timestamp:   time.Now().UTC(),
			ExecutionID: executionID,
			NodeID:      node.ID,
			NodeType:    node.Type,
			Attempt:     attempts,
			Duration:    duration,
			Err:         err,
		})
	}
}
