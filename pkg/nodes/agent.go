package nodes

import (
	"context"
	"fmt"
	"strings"

	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/ports"
	"github.com/aretw0/espalier/pkg/registry"
)

// defaultContextWarnAt is the session context usage fraction above which the
// agent node emits a context window warning.
const defaultContextWarnAt = 0.8

// AgentConfig configures an agent node.
type AgentConfig struct {
	// Client creates the backend session. Either set it directly or name a
	// registered client via Registry and ClientName.
	Client     ports.SessionClient
	Registry   *registry.Registry
	ClientName string

	// Model is passed through to the backend untouched.
	Model string

	// SystemPrompt seeds the session.
	SystemPrompt string

	// Prompt is a {{ key }} template rendered against the state values.
	Prompt string

	// OutputKey, when set, receives the accumulated response text as a
	// partial state update. The raw text is always recorded as the node
	// output regardless.
	OutputKey string

	// ContextWarnAt overrides the usage fraction that triggers a context
	// window warning signal. Zero means the default.
	ContextWarnAt float64
}

// Agent builds a node that drives one backend session: create, send the
// rendered prompt, drain the stream, destroy. Destruction always runs,
// including on error and abort paths.
func Agent(id string, cfg AgentConfig) domain.Node {
	return domain.Node{
		ID:    id,
		Type:  domain.NodeTypeAgent,
		Model: cfg.Model,
		Execute: func(ctx context.Context, ec *domain.ExecContext) (*domain.Result, error) {
			client := cfg.Client
			if client == nil {
				if cfg.Registry == nil {
					return nil, fmt.Errorf("agent %q has neither a client nor a registry", id)
				}
				var err error
				client, err = cfg.Registry.Client(cfg.ClientName)
				if err != nil {
					return nil, fmt.Errorf("agent %q: %w", id, err)
				}
			}

			session, err := client.CreateSession(ctx, ports.SessionConfig{
				Model:        cfg.Model,
				SystemPrompt: cfg.SystemPrompt,
			})
			if err != nil {
				return nil, fmt.Errorf("agent %q failed to create session: %w", id, err)
			}
			// Teardown must survive run cancellation, or aborted runs leak
			// backend sessions.
			defer session.Destroy(context.WithoutCancel(ctx))

			prompt := Interpolate(cfg.Prompt, ec.State.Values)
			if err := session.Send(ctx, prompt); err != nil {
				return nil, fmt.Errorf("agent %q failed to send prompt: %w", id, err)
			}

			chunks, err := session.Stream(ctx)
			if err != nil {
				return nil, fmt.Errorf("agent %q failed to open stream: %w", id, err)
			}

			warnAt := cfg.ContextWarnAt
			if warnAt <= 0 {
				warnAt = defaultContextWarnAt
			}

			var sb strings.Builder
			warned := false
			for chunk := range chunks {
				sb.WriteString(chunk.Content)
				if !warned && chunk.ContextUsage >= warnAt {
					ec.Emit(domain.ContextWindowSignal(chunk.ContextUsage))
					warned = true
				}
				if chunk.Final {
					break
				}
			}
			if err := ctx.Err(); err != nil {
				return nil, &domain.AbortError{NodeID: id, Err: err}
			}

			text := sb.String()
			result := &domain.Result{Output: text}
			if cfg.OutputKey != "" {
				result.Update = map[string]any{cfg.OutputKey: text}
			}
			return result, nil
		},
	}
}
