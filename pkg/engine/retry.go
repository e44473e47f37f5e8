package engine

import (
	"context"
	"time"

	"github.com/aretw0/espalier/pkg/domain"
)

// executeWithRetry invokes a node under its retry policy and reports the
// number of attempts actually made. Backoff waits are interruptible: run
// cancellation during a wait surfaces as an abort, not a retry failure.
func (g *CompiledGraph) executeWithRetry(ctx context.Context, executionID string, node *domain.Node, ec *domain.ExecContext) (*domain.Result, int, error) {
	policy := node.Retry
	maxAttempts := 1
	if policy != nil && policy.MaxAttempts > 1 {
		maxAttempts = policy.MaxAttempts
	}

	backoff := time.Duration(0)
	if policy != nil {
		backoff = policy.Backoff
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, attempt - 1, g.abortErr(node.ID, err)
		}

		result, err := node.Execute(ctx, ec)
		if err == nil {
			return result, attempt, nil
		}
		if isAbort(err) {
			return nil, attempt, err
		}
		lastErr = err

		if attempt == maxAttempts {
			break
		}
		if policy.RetryOn != nil && !policy.RetryOn(err) {
			return nil, attempt, &domain.NodeExecutionError{NodeID: node.ID, Attempts: attempt, Err: err}
		}

		g.cfg.logger.Warn("node attempt failed, retrying",
			"node", node.ID, "attempt", attempt, "backoff", backoff, "err", err)
		if g.cfg.hooks.OnNodeRetry != nil {
			g.cfg.hooks.OnNodeRetry(ctx, &domain.RetryEvent{
				Timestamp:   time.Now().UTC(),
				ExecutionID: executionID,
				NodeID:      node.ID,
				Attempt:     attempt,
				Backoff:     backoff,
				Err:         err,
			})
		}

		if backoff > 0 {
			timer := time.NewTimer(backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, attempt, g.abortErr(node.ID, ctx.Err())
			case <-timer.C:
			}
			multiplier := policy.Multiplier
			if multiplier < 1 {
				multiplier = 1
			}
			backoff = time.Duration(float64(backoff) * multiplier)
		}
	}

	return nil, maxAttempts, &domain.NodeExecutionError{NodeID: node.ID, Attempts: maxAttempts, Err: lastErr}
}
