package dsl

import (
	"context"
	"errors"
	"fmt"

	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/engine"
	"github.com/aretw0/espalier/pkg/nodes"
)

// cursor is one attachment point for the next node: a source node plus the
// pending edge condition the connection will carry.
type cursor struct {
	from  string
	cond  domain.EdgeCondition
	label string
}

// condFrame tracks one open If block.
type condFrame struct {
	decisionID string
	cond       domain.EdgeCondition
	trueTips   []cursor
	elseSeen   bool
}

// Builder accumulates nodes and edges for compilation. The zero value is not
// usable; create one with New.
//
// The builder keeps a cursor set: the node(s) the next Then will connect
// from. A plain chain has one cursor; after EndIf the set holds the tip of
// each branch, so the next node reconverges both.
type Builder struct {
	schema    domain.Schema
	nodes     []domain.Node
	edges     []domain.Edge
	start     string
	terminals []string

	cursors     []cursor
	frames      []*condFrame
	decisionSeq int
	decisionIDs map[string]bool
	lastNode    string
	errs        []error
}

// New creates a builder over a reducer schema. A nil schema means every
// field uses replace semantics.
func New(schema domain.Schema) *Builder {
	return &Builder{schema: schema}
}

// Start registers the entry node and places the cursor on it.
func (b *Builder) Start(node domain.Node) *Builder {
	if b.start != "" {
		b.errs = append(b.errs, fmt.Errorf("start node already set to %q", b.start))
		return b
	}
	b.start = node.ID
	b.register(node)
	b.cursors = []cursor{{from: node.ID}}
	return b
}

// Then registers a node and connects every current cursor to it, then moves
// the cursor onto it. After an EndIf this is what reconverges the branches.
func (b *Builder) Then(node domain.Node) *Builder {
	if b.start == "" {
		b.errs = append(b.errs, fmt.Errorf("Then(%q) before Start", node.ID))
		return b
	}
	b.register(node)
	for _, c := range b.cursors {
		b.edges = append(b.edges, domain.Edge{
			From:      c.from,
			To:        node.ID,
			Condition: c.cond,
			Label:     c.label,
		})
	}
	b.cursors = []cursor{{from: node.ID}}
	return b
}

// If opens a conditional block. An implicit decision node is registered; the
// true branch follows edges labeled "yes", carrying the condition.
func (b *Builder) If(cond domain.EdgeCondition) *Builder {
	if b.start == "" {
		b.errs = append(b.errs, errors.New("If before Start"))
		return b
	}
	if cond == nil {
		b.errs = append(b.errs, errors.New("If with nil condition"))
		return b
	}

	b.decisionSeq++
	id := fmt.Sprintf("decision_%d", b.decisionSeq)
	if b.decisionIDs == nil {
		b.decisionIDs = make(map[string]bool)
	}
	b.decisionIDs[id] = true
	b.Then(domain.Node{
		ID:   id,
		Type: domain.NodeTypeDecision,
		Execute: func(ctx context.Context, ec *domain.ExecContext) (*domain.Result, error) {
			return &domain.Result{}, nil
		},
	})

	b.frames = append(b.frames, &condFrame{decisionID: id, cond: cond})
	b.cursors = []cursor{{from: id, cond: cond, label: "yes"}}
	return b
}

// Else switches construction to the false branch of the innermost If.
func (b *Builder) Else() *Builder {
	frame := b.topFrame("Else")
	if frame == nil {
		return b
	}
	if frame.elseSeen {
		b.errs = append(b.errs, fmt.Errorf("duplicate Else for %s", frame.decisionID))
		return b
	}
	frame.elseSeen = true
	frame.trueTips = b.cursors
	b.cursors = []cursor{{from: frame.decisionID, cond: negate(frame.cond), label: "no"}}
	return b
}

// EndIf closes the innermost If block and merges the branch tips into one
// cursor set, so the next Then wires from both branches.
//
// Without an Else, the false path flows directly from the decision node to
// whatever follows EndIf.
func (b *Builder) EndIf() *Builder {
	frame := b.topFrame("EndIf")
	if frame == nil {
		return b
	}
	b.frames = b.frames[:len(b.frames)-1]

	if frame.elseSeen {
		b.cursors = append(frame.trueTips, b.cursors...)
		return b
	}
	b.cursors = append(b.cursors, cursor{
		from:  frame.decisionID,
		cond:  negate(frame.cond),
		label: "no",
	})
	return b
}

// Loop is sugar over the loop wrapper factory.
func (b *Builder) Loop(id string, cfg nodes.LoopConfig, body ...domain.Node) *Builder {
	return b.Then(nodes.Loop(id, cfg, body...))
}

// Parallel is sugar over the parallel fan-out factory.
func (b *Builder) Parallel(id string, children []domain.Node, cfg nodes.ParallelConfig) *Builder {
	return b.Then(nodes.Parallel(id, children, cfg))
}

// Wait is sugar over the wait factory: the run suspends here until resumed.
func (b *Builder) Wait(id, prompt string) *Builder {
	return b.Then(nodes.Wait(id, prompt))
}

// Catch attaches an error handler to the most recently added node.
func (b *Builder) Catch(handler domain.CatchFunc) *Builder {
	node := b.last("Catch")
	if node != nil {
		node.Catch = handler
	}
	return b
}

// Retry attaches a retry policy to the most recently added node.
func (b *Builder) Retry(policy domain.RetryPolicy) *Builder {
	node := b.last("Retry")
	if node != nil {
		node.Retry = &policy
	}
	return b
}

// End marks terminal nodes. With no arguments it marks the most recently
// added node. Edges out of a terminal are never followed.
func (b *Builder) End(ids ...string) *Builder {
	if len(ids) == 0 {
		node := b.last("End")
		if node == nil {
			return b
		}
		ids = []string{node.ID}
	}
	b.terminals = append(b.terminals, ids...)
	return b
}

// Edge adds an explicit edge, for wiring that falls outside the linear
// chain (loops back to earlier nodes, extra reconvergence targets).
func (b *Builder) Edge(from, to string, cond domain.EdgeCondition) *Builder {
	b.edges = append(b.edges, domain.Edge{From: from, To: to, Condition: cond})
	return b
}

// Spec returns the accumulated graph spec without compiling it, for
// registration in an engine library.
func (b *Builder) Spec() (*engine.GraphSpec, error) {
	if err := b.check(); err != nil {
		return nil, err
	}
	return &engine.GraphSpec{
		Start:     b.start,
		Nodes:     b.nodes,
		Edges:     b.edges,
		Terminals: b.terminals,
		Schema:    b.schema,
	}, nil
}

// Compile validates the accumulated graph and returns an immutable,
// executable form. It performs no execution.
func (b *Builder) Compile(opts ...engine.Option) (*engine.CompiledGraph, error) {
	spec, err := b.Spec()
	if err != nil {
		return nil, err
	}
	return engine.Compile(spec, opts...)
}

func (b *Builder) register(node domain.Node) {
	b.nodes = append(b.nodes, node)
	b.lastNode = node.ID
}

func (b *Builder) last(op string) *domain.Node {
	if b.lastNode == "" {
		b.errs = append(b.errs, fmt.Errorf("%s with no node added yet", op))
		return nil
	}
	for i := range b.nodes {
		if b.nodes[i].ID == b.lastNode {
			return &b.nodes[i]
		}
	}
	return nil
}

func (b *Builder) topFrame(op string) *condFrame {
	if len(b.frames) == 0 {
		b.errs = append(b.errs, fmt.Errorf("%s without matching If", op))
		return nil
	}
	return b.frames[len(b.frames)-1]
}

func (b *Builder) check() error {
	errs := b.errs
	if b.start == "" {
		errs = append(errs, errors.New("no start node defined"))
	}
	if len(b.frames) > 0 {
		errs = append(errs, fmt.Errorf("%d unclosed If block(s)", len(b.frames)))
	}
	// A user node can land on an id an If generated for its decision node.
	// Name the clash here; a bare duplicate-id error would point nowhere.
	seen := make(map[string]bool, len(b.nodes))
	for _, n := range b.nodes {
		if seen[n.ID] && b.decisionIDs[n.ID] {
			errs = append(errs, fmt.Errorf("node id %q collides with the decision node generated by an If block, rename the node", n.ID))
		}
		seen[n.ID] = true
	}
	return errors.Join(errs...)
}

func negate(cond domain.EdgeCondition) domain.EdgeCondition {
	return func(ec *domain.ExecContext) bool {
		return !cond(ec)
	}
}
