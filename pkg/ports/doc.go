/*
Package ports defines the driven ports (interfaces) for the Espalier engine.

These interfaces decouple the core logic from external implementations,
allowing the engine to work with various checkpoint backends and agent
backends without engine changes.

# Key Interfaces

  - Checkpointer: Persists and loads run state keyed by execution ID.
  - SessionClient / Session: The four-method agent backend contract
    (create a session, send a prompt, stream output, destroy).
*/
package ports
