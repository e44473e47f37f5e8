/*
Package espalier is a checkpointed workflow graph engine for agentic
automation: typed nodes (agent, tool, decision, wait, parallel, subgraph,
loop) wired by conditional edges, executed over reducer-merged state.

Espalier separates the workflow shape (Graph) from the run state (State) and
side effects (backend sessions and tools behind ports). This hexagonal
layout lets the engine be embedded anywhere: a CLI, an HTTP server, or AI
agent infrastructure.

# Concept

A workflow is a graph. Each node returns a partial state update; the engine
merges it through per-field reducers, persists a checkpoint, and follows
edges (or an explicit goto) to the next frontier. Wait nodes suspend the run
until externally resumed; checkpoints make every run resumable after
failure.

# Usage

Build a graph with the fluent builder and run it:

	package main

	import (
		"context"
		"log"

		"github.com/aretw0/espalier"
		"github.com/aretw0/espalier/pkg/adapters/file"
		"github.com/aretw0/espalier/pkg/domain"
		"github.com/aretw0/espalier/pkg/engine"
		"github.com/aretw0/espalier/pkg/nodes"
	)

	func main() {
		schema := domain.Schema{
			"log": domain.Annotate([]any{}, domain.Concat),
		}

		g, err := espalier.NewBuilder(schema).
			Start(nodes.Func("greet", greet)).
			Then(nodes.Func("farewell", farewell)).
			End().
			Compile(engine.WithCheckpointer(file.NewStore("")))
		if err != nil {
			log.Fatal(err)
		}

		final, err := g.Execute(context.Background(), nil)
		if err != nil {
			log.Fatal(err)
		}
		log.Println(final.Values["log"])
	}

# Key Features

  - Reducer-merged state: per-field annotations define how updates combine
    (replace, concat, merge, mergeById).
  - Durable execution: checkpoints after every completed node; suspend on
    human input and resume later, even across process restarts.
  - Bounded retry with backoff, per node, plus catch handlers for recovery
    routing.
  - Pluggable persistence: in-memory, file, human-readable markdown and
    Redis checkpointers share one contract.
  - Observability: lifecycle hooks feed structured logging and Prometheus
    collectors without engine changes.
*/
package espalier
