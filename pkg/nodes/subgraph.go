package nodes

import (
	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/engine"
)

// Subgraph builds a node referencing a workflow registered in the engine
// library. The reference is resolved at compile time; a reference cycle is
// rejected there with the full chain named.
func Subgraph(id string, spec domain.SubgraphSpec) domain.Node {
	return domain.Node{
		ID:       id,
		Type:     domain.NodeTypeSubgraph,
		Subgraph: &spec,
	}
}

// SubgraphOf builds a node around an already compiled graph, for
// compositions that do not go through a library.
func SubgraphOf(id string, sub *engine.CompiledGraph, spec domain.SubgraphSpec) domain.Node {
	return domain.Node{
		ID:      id,
		Type:    domain.NodeTypeSubgraph,
		Execute: engine.SubgraphExec(sub, spec),
	}
}
