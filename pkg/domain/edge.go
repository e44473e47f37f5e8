package domain

// EdgeCondition is a pure predicate over the post-merge execution context.
type EdgeCondition func(ec *ExecContext) bool

// Edge defines a directed connection between two nodes.
// An edge with a nil Condition is always followed.
type Edge struct {
	From string
	To   string

	// Condition gates traversal. Evaluated against the context built from
	// the state after the source node's update has been merged.
	Condition EdgeCondition

	// Label is a human-readable tag for the condition, used by introspection
	// and graph rendering. Purely cosmetic.
	Label string
}
