package middleware

import (
	"context"
	"regexp"

	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/ports"
)

type redactionMiddleware struct {
	next     ports.Checkpointer
	patterns []*regexp.Regexp
}

// NewRedactionMiddleware creates a middleware that masks values of state
// fields and node outputs whose keys match the patterns. Useful in front of
// the human-readable store, where checkpoints are meant to be read.
// Redaction is lossy: loaded checkpoints carry the mask, not the value.
func NewRedactionMiddleware(patternStrings []string) Middleware {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		patterns[i] = regexp.MustCompile(p)
	}
	return func(next ports.Checkpointer) ports.Checkpointer {
		return &redactionMiddleware{next: next, patterns: patterns}
	}
}

func (m *redactionMiddleware) Save(ctx context.Context, state *domain.State) error {
	// Deep-copy the maps first: Clone shares nested values, and masking
	// must never leak into the in-memory state used by the engine.
	cloned := state.Clone()
	cloned.Values = deepCopyMap(state.Values)
	cloned.Outputs = deepCopyMap(state.Outputs)
	maskMap(cloned.Values, m.patterns)
	maskMap(cloned.Outputs, m.patterns)

	return m.next.Save(ctx, cloned)
}

func (m *redactionMiddleware) Load(ctx context.Context, executionID string) (*domain.State, error) {
	return m.next.Load(ctx, executionID)
}

func (m *redactionMiddleware) Delete(ctx context.Context, executionID string) error {
	return m.next.Delete(ctx, executionID)
}

func (m *redactionMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func deepCopyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if subMap, ok := v.(map[string]any); ok {
			out[k] = deepCopyMap(subMap)
		} else {
			out[k] = v
		}
	}
	return out
}

func maskMap(m map[string]any, patterns []*regexp.Regexp) {
	for k := range m {
		for _, p := range patterns {
			if p.MatchString(k) {
				m[k] = "***"
				break
			}
		}

		// Recurse into nested maps that were not masked themselves.
		if subMap, ok := m[k].(map[string]any); ok {
			maskMap(subMap, patterns)
		}
	}
}
