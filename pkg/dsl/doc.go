// Package dsl provides the fluent graph builder: start a workflow, chain
// nodes with Then, branch with If/Else/EndIf, iterate with Loop, fan out
// with Parallel, and Compile into an executable graph.
//
// Builder misuse (Then before Start, Else without If) is collected and
// reported by Compile rather than panicking mid-chain.
package dsl
