package ports

import "context"

// SessionConfig carries what a backend needs to open a session.
// Model is an opaque identifier the engine never parses.
type SessionConfig struct {
	Model        string
	SystemPrompt string
	Metadata     map[string]any
}

// Chunk is one increment of streamed backend output.
type Chunk struct {
	// Content is the incremental text payload.
	Content string

	// Final marks the backend's completion signal for the current prompt.
	Final bool

	// ContextUsage, when non-zero, reports how full the session's context
	// window is (0..1). Surfaced upward as an advisory signal.
	ContextUsage float64
}

// Session is a live conversation with an agent backend.
type Session interface {
	// Send submits a prompt to the session.
	Send(ctx context.Context, text string) error

	// Stream returns the incremental output channel for the current prompt.
	// The channel is closed after a Final chunk or on backend error; the
	// backend must observe ctx cancellation and close early.
	Stream(ctx context.Context) (<-chan Chunk, error)

	// Destroy tears the session down. Must be safe to call exactly once on
	// every path, including error and abort paths.
	Destroy(ctx context.Context) error
}

// SessionClient creates backend sessions. Any implementation satisfying this
// shape is pluggable without engine changes.
type SessionClient interface {
	CreateSession(ctx context.Context, config SessionConfig) (Session, error)
}
