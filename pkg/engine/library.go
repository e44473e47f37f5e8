package engine

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/aretw0/espalier/pkg/domain"
)

// Library is an arena-style name table of graph specs, enabling workflows to
// reference each other by name. Resolution is depth-first with an explicit
// "currently resolving" chain, so a reference cycle (A -> B -> A) is rejected
// with an error naming the full chain instead of blowing the stack.
type Library struct {
	mu    sync.RWMutex
	specs map[string]*GraphSpec
}

// NewLibrary creates an empty library.
func NewLibrary() *Library {
	return &Library{
		specs: make(map[string]*GraphSpec),
	}
}

// Register adds a named graph spec. Re-registering a name is an error;
// workflows are immutable once published.
func (l *Library) Register(name string, spec *GraphSpec) error {
	if name == "" {
		return fmt.Errorf("workflow name cannot be empty")
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, dup := l.specs[name]; dup {
		return fmt.Errorf("workflow %q already registered", name)
	}
	l.specs[name] = spec
	return nil
}

// Names lists registered workflow names.
func (l *Library) Names() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	names := make([]string, 0, len(l.specs))
	for name := range l.specs {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func (l *Library) spec(name string) (*GraphSpec, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	s, ok := l.specs[name]
	return s, ok
}

// resolveRef compiles the named spec, tracking the resolving chain for
// cycle detection.
func resolveRef(name string, cfg config, resolving []string) (*CompiledGraph, error) {
	if cfg.library == nil {
		return nil, domain.Validationf("subgraph reference %q but no library configured", name)
	}

	if slices.Contains(resolving, name) {
		return nil, &domain.CycleError{Chain: append(append([]string{}, resolving...), name)}
	}

	spec, ok := cfg.library.spec(name)
	if !ok {
		return nil, domain.Validationf("subgraph reference %q not found in library", name)
	}

	// Subgraphs run embedded in the parent step: they inherit the logger and
	// library but not the checkpointer (the parent owns the checkpoint) nor
	// the run timeout.
	subCfg := defaultConfig()
	subCfg.logger = cfg.logger
	subCfg.library = cfg.library
	subCfg.maxConcurrency = cfg.maxConcurrency

	return compile(spec, subCfg, append(append([]string{}, resolving...), name))
}

// SubgraphExec builds the execute function of a subgraph node: seed a nested
// run with (a slice of) the parent values, execute it to completion, and fold
// selected final values back as a partial update for the parent's reducers.
func SubgraphExec(sub *CompiledGraph, spec domain.SubgraphSpec) domain.ExecFunc {
	return func(ctx context.Context, ec *domain.ExecContext) (*domain.Result, error) {
		input := make(map[string]any)
		if len(spec.InputKeys) == 0 {
			for k, v := range ec.State.Values {
				input[k] = v
			}
		} else {
			for _, k := range spec.InputKeys {
				if v, ok := ec.State.Values[k]; ok {
					input[k] = v
				}
			}
		}

		final, err := sub.Execute(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("subgraph failed: %w", err)
		}
		if final.Status == domain.StatusSuspended {
			// Wait nodes belong in the parent graph, where resume can find them.
			return nil, fmt.Errorf("subgraph suspended mid-run; wait nodes are not supported inside subgraphs")
		}

		update := make(map[string]any)
		if len(spec.OutputKeys) == 0 {
			for k, v := range final.Values {
				update[k] = v
			}
		} else {
			for _, k := range spec.OutputKeys {
				if v, ok := final.Values[k]; ok {
					update[k] = v
				}
			}
		}

		return &domain.Result{Update: update, Output: final.Outputs}, nil
	}
}
