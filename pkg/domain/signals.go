package domain

// SignalType categorizes advisory events emitted during execution.
type SignalType string

const (
	// SignalHumanInput asks the host for human input. This is the only
	// signal the engine itself reacts to: it suspends the run.
	SignalHumanInput SignalType = "human_input_required"

	// SignalContextWindow warns that a backend session is close to its
	// context limit. Payload key "usage" holds the 0..1 ratio.
	SignalContextWindow SignalType = "context_window_warning"

	// SignalCheckpoint labels a point of interest in the run.
	SignalCheckpoint SignalType = "checkpoint"
)

// Signal is an advisory event surfaced upward via ctx.Emit.
// Signals never block execution except for SignalHumanInput.
type Signal struct {
	Type    SignalType     `json:"type"`
	Payload map[string]any `json:"payload,omitempty"`
}

// HumanInputSignal builds the signal a wait node emits before suspension.
func HumanInputSignal(prompt string) Signal {
	return Signal{Type: SignalHumanInput, Payload: map[string]any{"prompt": prompt}}
}

// ContextWindowSignal builds a context usage warning.
func ContextWindowSignal(usage float64) Signal {
	return Signal{Type: SignalContextWindow, Payload: map[string]any{"usage": usage}}
}

// CheckpointSignal builds a labeled checkpoint marker.
func CheckpointSignal(label string) Signal {
	return Signal{Type: SignalCheckpoint, Payload: map[string]any{"label": label}}
}

// Prompt extracts the prompt of a human-input signal, or "".
func (s Signal) Prompt() string {
	if p, ok := s.Payload["prompt"].(string); ok {
		return p
	}
	return ""
}
