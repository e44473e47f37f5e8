/*
Package engine contains the execution core: compiling a graph specification
into an immutable CompiledGraph, and running it.

A run drains a frontier of node IDs one at a time. Each step snapshots the
state, executes the node with retry wrapping, merges the returned partial
update through the schema reducers, checkpoints, and computes the next
frontier from an explicit goto or from the outgoing edge conditions. The run
ends when the frontier empties (terminal), a wait node suspends it, or an
unrecoverable error propagates past retry and catch handling.

Determinism: the frontier is strictly FIFO and edge evaluation follows
declaration order, so acyclic, non-parallel graphs traverse in a stable
topological order. The only concurrency is parallel-node fan-out, bounded by
the configured MaxConcurrency (default 1).
*/
package engine
