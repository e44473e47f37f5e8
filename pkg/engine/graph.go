package engine

import (
	"github.com/aretw0/espalier/pkg/domain"
)

// GraphSpec is the declarative input to Compile: the node set, edge set,
// entry node and reducer schema a builder accumulated.
type GraphSpec struct {
	Start     string
	Nodes     []domain.Node
	Edges     []domain.Edge
	Terminals []string
	Schema    domain.Schema
}

// CompiledGraph is an immutable, validated, executable graph.
// It performs no execution at construction; create one with Compile.
type CompiledGraph struct {
	start     string
	nodes     map[string]*domain.Node
	order     []string
	edges     map[string][]domain.Edge
	terminals map[string]struct{}
	schema    domain.Schema
	cfg       config
}

// Compile validates a GraphSpec and returns an immutable CompiledGraph.
//
// Validation covers: a start node is declared and exists, node IDs are
// unique, every edge endpoint is known, every terminal is known, and every
// subgraph reference resolves without cycles. All of this happens here;
// nothing is discovered mid-run.
func Compile(spec *GraphSpec, opts ...Option) (*CompiledGraph, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return compile(spec, cfg, nil)
}

// compile is the internal entry that threads the subgraph resolving chain.
func compile(spec *GraphSpec, cfg config, resolving []string) (*CompiledGraph, error) {
	if spec == nil {
		return nil, domain.Validationf("nil graph spec")
	}
	if spec.Start == "" {
		return nil, domain.Validationf("no start node defined")
	}

	g := &CompiledGraph{
		start:     spec.Start,
		nodes:     make(map[string]*domain.Node, len(spec.Nodes)),
		order:     make([]string, 0, len(spec.Nodes)),
		edges:     make(map[string][]domain.Edge),
		terminals: make(map[string]struct{}, len(spec.Terminals)),
		schema:    spec.Schema,
		cfg:       cfg,
	}
	if g.schema == nil {
		g.schema = domain.Schema{}
	}

	for i := range spec.Nodes {
		node := spec.Nodes[i] // copy; the spec stays untouched
		if node.ID == "" {
			return nil, domain.Validationf("node with empty id")
		}
		if _, dup := g.nodes[node.ID]; dup {
			return nil, domain.Validationf("duplicate node id %q", node.ID)
		}

		// Named subgraph references are resolved depth-first here, so a
		// reference cycle surfaces before any node executes.
		if node.Subgraph != nil && node.Subgraph.Ref != "" {
			sub, err := resolveRef(node.Subgraph.Ref, cfg, resolving)
			if err != nil {
				return nil, err
			}
			node.Execute = SubgraphExec(sub, *node.Subgraph)
		}

		if node.Execute == nil {
			return nil, domain.Validationf("node %q has no execute function", node.ID)
		}

		g.nodes[node.ID] = &node
		g.order = append(g.order, node.ID)
	}

	if _, ok := g.nodes[spec.Start]; !ok {
		return nil, domain.Validationf("start node %q is not registered", spec.Start)
	}

	for _, edge := range spec.Edges {
		if _, ok := g.nodes[edge.From]; !ok {
			return nil, domain.Validationf("edge from unknown node %q", edge.From)
		}
		if _, ok := g.nodes[edge.To]; !ok {
			return nil, domain.Validationf("edge %q -> %q targets unknown node", edge.From, edge.To)
		}
		g.edges[edge.From] = append(g.edges[edge.From], edge)
	}

	for _, id := range spec.Terminals {
		if _, ok := g.nodes[id]; !ok {
			return nil, domain.Validationf("terminal %q is not registered", id)
		}
		g.terminals[id] = struct{}{}
	}

	return g, nil
}

// Start returns the entry node ID.
func (g *CompiledGraph) Start() string {
	return g.start
}

// Nodes returns the graph's nodes in declaration order.
func (g *CompiledGraph) Nodes() []domain.Node {
	out := make([]domain.Node, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, *g.nodes[id])
	}
	return out
}

// Edges returns all edges, grouped by declaration order of their source.
func (g *CompiledGraph) Edges() []domain.Edge {
	var out []domain.Edge
	for _, id := range g.order {
		out = append(out, g.edges[id]...)
	}
	return out
}

// Schema returns the reducer schema the graph was compiled with.
func (g *CompiledGraph) Schema() domain.Schema {
	return g.schema
}

// IsTerminal reports whether a node was marked as an end node.
func (g *CompiledGraph) IsTerminal(id string) bool {
	_, ok := g.terminals[id]
	return ok
}
