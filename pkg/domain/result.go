package domain

// RouteKind distinguishes the two ways a node can select its successors.
type RouteKind string

const (
	// RouteEdges follows the outgoing edges whose conditions hold.
	RouteEdges RouteKind = "edges"
	// RouteGoto jumps to explicit targets, overriding the edge set.
	RouteGoto RouteKind = "goto"
)

// Route is the tagged successor selection of a node result.
// A nil *Route on a Result means RouteEdges.
type Route struct {
	Kind    RouteKind
	Targets []string
}

// Goto builds an explicit route, overriding outgoing edges.
func Goto(targets ...string) *Route {
	return &Route{Kind: RouteGoto, Targets: targets}
}

// Result is what a node hands back to the executor.
// All fields are optional; the zero Result means "no update, follow edges".
type Result struct {
	// Update is a partial state update, merged through the Schema reducers.
	Update map[string]any

	// Output is the raw node output, recorded under the node's ID in
	// State.Outputs for later lookup by other nodes.
	Output any

	// Route overrides edge following when its kind is RouteGoto.
	Route *Route

	// Signals are advisory events surfaced to the host (UI, CLI). The engine
	// only acts on the human-input signal, which suspends the run.
	Signals []Signal

	// Iterations carries loop counter advances, merged monotonically into
	// State.Iterations so checkpoints can resume mid-loop.
	Iterations map[string]int
}
