package espalier

import (
	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/dsl"
	"github.com/aretw0/espalier/pkg/engine"
)

// Version is the library version, reported by the CLI.
var Version = "0.1.0"

// NewBuilder starts a fluent graph builder over a reducer schema.
func NewBuilder(schema domain.Schema) *dsl.Builder {
	return dsl.New(schema)
}

// NewLibrary creates an empty workflow library for named subgraph
// composition.
func NewLibrary() *engine.Library {
	return engine.NewLibrary()
}

// Compile validates a graph spec directly, for callers assembling specs
// without the builder.
func Compile(spec *engine.GraphSpec, opts ...engine.Option) (*engine.CompiledGraph, error) {
	return engine.Compile(spec, opts...)
}
