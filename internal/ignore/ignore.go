// Package ignore implements the caller-provided suppression set of
// spec.md §3/§4.4: nodes the propagator must treat as dead ends.
package ignore

import "github.com/asyncify/asyncify/internal/ast"

// Set is a simple node membership set. Callers locate the node to ignore
// via the engine's NodeByLineFilterIndex and then Mark it; the set itself
// knows nothing about (path, line, type, index) coordinates.
type Set struct {
	nodes map[ast.NodeID]bool
}

// New returns an empty ignore set.
func New() *Set {
	return &Set{nodes: make(map[ast.NodeID]bool)}
}

// Mark adds id to the set.
func (s *Set) Mark(id ast.NodeID) {
	s.nodes[id] = true
}

// Contains reports whether id has been marked ignored.
func (s *Set) Contains(id ast.NodeID) bool {
	return s.nodes[id]
}

// Len reports how many nodes are currently ignored.
func (s *Set) Len() int { return len(s.nodes) }
