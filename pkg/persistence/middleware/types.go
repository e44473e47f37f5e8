// Package middleware provides composable wrappers around a Checkpointer,
// adding persistence-time behavior such as encryption or redaction without
// touching the engine or the backends.
package middleware

import "github.com/aretw0/espalier/pkg/ports"

// Middleware allows wrapping a Checkpointer to add behavior.
type Middleware func(ports.Checkpointer) ports.Checkpointer

// Chain applies middlewares right to left, so the first listed wraps outermost.
func Chain(cp ports.Checkpointer, mws ...Middleware) ports.Checkpointer {
	for i := len(mws) - 1; i >= 0; i-- {
		cp = mws[i](cp)
	}
	return cp
}
