/*
Package domain contains the core domain models for the Espalier engine.

It defines the fundamental entities of the workflow graph, such as Nodes,
Edges, the reducer Schema, and the execution State. This package is kept pure
and free of I/O or persistence concerns, following Hexagonal Architecture
principles.

# Key Entities

  - Node: A typed unit of work (agent, tool, decision, wait, parallel, subgraph).
  - Edge: A directed connection between nodes with an optional condition.
  - Schema / Annotation: Per-field reducers describing how partial updates merge.
  - State: The runtime snapshot of a run (values, outputs, frontier, status).
  - Result: What a node returns — a partial update, a route, advisory signals.
*/
package domain
