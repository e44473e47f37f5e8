package engine

import (
	"log/slog"
	"time"

	"github.com/aretw0/espalier/internal/logging"
	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/ports"
)

// config holds compile-time engine configuration.
type config struct {
	checkpointer   ports.Checkpointer
	logger         *slog.Logger
	hooks          domain.LifecycleHooks
	maxConcurrency int
	runTimeout     time.Duration
	library        *Library
	streamBuffer   int
}

func defaultConfig() config {
	return config{
		logger:         logging.NewNop(),
		maxConcurrency: 1,
		streamBuffer:   16,
	}
}

// Option configures a CompiledGraph at compile time.
type Option func(*config)

// WithCheckpointer enables durable execution: the merged state is persisted
// after every fully completed node.
func WithCheckpointer(cp ports.Checkpointer) Option {
	return func(c *config) {
		c.checkpointer = cp
	}
}

// WithLogger sets a structured logger for the engine. Default is a no-op.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(c *config) {
		c.hooks = hooks
	}
}

// WithMaxConcurrency bounds parallel-node fan-out. Default is 1, which runs
// parallel children sequentially (still against one shared snapshot).
func WithMaxConcurrency(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxConcurrency = n
		}
	}
}

// WithRunTimeout bounds the wall-clock duration of a whole run.
func WithRunTimeout(d time.Duration) Option {
	return func(c *config) {
		c.runTimeout = d
	}
}

// WithLibrary makes named subgraph references resolvable at compile time.
func WithLibrary(lib *Library) Option {
	return func(c *config) {
		c.library = lib
	}
}

// WithStreamBuffer sets the step channel capacity used by Stream.
func WithStreamBuffer(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.streamBuffer = n
		}
	}
}

// runOptions holds per-run configuration.
type runOptions struct {
	executionID string
	config      map[string]any
}

// RunOption configures a single run.
type RunOption func(*runOptions)

// WithExecutionID fixes the run's execution ID. Default is a random UUID.
func WithExecutionID(id string) RunOption {
	return func(o *runOptions) {
		o.executionID = id
	}
}

// WithRunConfig passes opaque caller configuration through to every node's
// ExecContext.
func WithRunConfig(cfg map[string]any) RunOption {
	return func(o *runOptions) {
		o.config = cfg
	}
}
