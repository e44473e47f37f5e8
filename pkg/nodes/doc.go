// Package nodes provides the typed node factories: agent, tool, decision,
// wait, parallel, subgraph and loop.
//
// All factories are pure constructors. They hold no global state; anything a
// node needs by name (tools, backend clients) comes from an injected
// registry.Registry, and anything it needs by value comes from its config.
package nodes
