package nodes

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/registry"
)

// ToolConfig configures a tool node.
type ToolConfig struct {
	// Registry resolves the tool by name.
	Registry *registry.Registry

	// Tool is the registered tool name. Defaults to the node ID.
	Tool string

	// Args builds the call arguments from the current state snapshot.
	// String values containing {{ key }} tokens are interpolated.
	Args func(ec *domain.ExecContext) map[string]any

	// Timeout bounds the call. Zero means no per-call bound beyond the
	// run's own context.
	Timeout time.Duration

	// OutputKey, when set, receives the raw tool result as a partial
	// state update.
	OutputKey string
}

// Tool builds a node that invokes a registered tool with a timeout and maps
// the raw result to a partial state update.
func Tool(id string, cfg ToolConfig) domain.Node {
	name := cfg.Tool
	if name == "" {
		name = id
	}
	return domain.Node{
		ID:   id,
		Type: domain.NodeTypeTool,
		Execute: func(ctx context.Context, ec *domain.ExecContext) (*domain.Result, error) {
			if cfg.Registry == nil {
				return nil, fmt.Errorf("tool node %q has no registry", id)
			}

			var args map[string]any
			if cfg.Args != nil {
				args = interpolateArgs(cfg.Args(ec), ec.State.Values)
			}

			callCtx := ctx
			if cfg.Timeout > 0 {
				var cancel context.CancelFunc
				callCtx, cancel = context.WithTimeout(ctx, cfg.Timeout)
				defer cancel()
			}

			out, err := cfg.Registry.ExecuteTool(callCtx, name, args)
			if err != nil {
				if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
					return nil, &domain.TimeoutError{NodeID: id, Timeout: cfg.Timeout, Err: err}
				}
				return nil, fmt.Errorf("tool %q failed: %w", name, err)
			}

			result := &domain.Result{Output: out}
			if cfg.OutputKey != "" {
				result.Update = map[string]any{cfg.OutputKey: out}
			}
			return result, nil
		},
	}
}

// interpolateArgs renders {{ key }} tokens inside string argument values.
func interpolateArgs(args, values map[string]any) map[string]any {
	if len(args) == 0 {
		return args
	}
	out := make(map[string]any, len(args))
	for k, v := range args {
		if s, ok := v.(string); ok {
			out[k] = Interpolate(s, values)
			continue
		}
		out[k] = v
	}
	return out
}
