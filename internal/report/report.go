// Package report implements ReportModel (spec.md §4.6): the read-only
// result handed back to callers after propagation, plus the display
// helpers (nameOf, serialize, isAsyncSyntaxError) built on top of it.
package report

import (
	"fmt"

	"github.com/asyncify/asyncify/internal/ast"
	"github.com/asyncify/asyncify/internal/index"
)

// Root is the sentinel AsyncMap key for the root entry (spec.md §4.5): a
// single edge whose AsyncNode is the seed. It is distinct from any real
// node ID since those are always >= 0.
const Root ast.NodeID = ast.NoNode

// Edge is one entry of an AsyncMap value: the await site that forced a new
// async marking, and (if anything new needed marking) the function that
// inherited it. AsyncNode is ast.NoNode when the await site's enclosing
// function doesn't exist (top-level), was already declared async in
// source, or is in the IgnoreSet — all three mean "nothing new to mark".
type Edge struct {
	AwaitNode ast.NodeID
	AsyncNode ast.NodeID
}

// AsyncMap is the ordered result of AsyncPropagator (spec.md §4.5):
// for each async node (plus the Root sentinel), the ordered list of edges
// that explain why it became async. Order preserves worklist discovery
// order, which the Idempotence invariant (spec.md §8, invariant 5) depends
// on.
type AsyncMap struct {
	Order []ast.NodeID
	Edges map[ast.NodeID][]Edge
}

// NewAsyncMap returns an empty map, pre-seeded with the Root entry pointing
// at seed.
func NewAsyncMap(seed ast.NodeID) *AsyncMap {
	m := &AsyncMap{Edges: make(map[ast.NodeID][]Edge)}
	m.Set(Root, []Edge{{AwaitNode: ast.NoNode, AsyncNode: seed}})
	return m
}

// Set records edges for key, appending key to Order only the first time it
// is seen (Order tracks each key's first-seen position).
func (m *AsyncMap) Set(key ast.NodeID, edges []Edge) {
	if _, exists := m.Edges[key]; !exists {
		m.Order = append(m.Order, key)
	}
	m.Edges[key] = edges
}

// Model is the {seed, asyncMap} pair of spec.md §4.6 plus its display
// helpers, all delegating node facts to the Index built during parse.
type Model struct {
	Seed ast.NodeID
	Map  *AsyncMap
	idx  *index.Index
	tree *ast.Tree
}

// New wraps an already-computed AsyncMap into a Model.
func New(tree *ast.Tree, idx *index.Index, seed ast.NodeID, m *AsyncMap) *Model {
	return &Model{Seed: seed, Map: m, idx: idx, tree: tree}
}

// NameOf delegates to IndexBuilder's nameOf, the stable short name used for
// display.
func (m *Model) NameOf(n ast.NodeID) (string, error) {
	return m.idx.NameOf(n)
}

// Serialize renders "path:line <Kind>[indexOnLine]", where indexOnLine is
// n's position among same-Kind nodes sharing (path, line) — spec.md §4.6.
func (m *Model) Serialize(n ast.NodeID) (string, error) {
	loc, ok := m.idx.LineOf(n)
	if !ok {
		return "", fmt.Errorf("serialize: node %d has no recorded origin", n)
	}
	kind := m.tree.Node(n).Kind
	index := 0
	for _, sibling := range m.idx.NodeIndex[loc] {
		if sibling == n {
			break
		}
		if m.tree.Node(sibling).Kind == kind {
			index++
		}
	}
	return fmt.Sprintf("%s:%d %s[%d]", loc.Path, loc.Line, kind, index), nil
}

// IsAsyncSyntaxError reports whether n is in AccessorSet or ConstructorSet:
// async getters/setters and async constructors are illegal in JavaScript,
// so the propagator may still mark them but the report flags them.
func (m *Model) IsAsyncSyntaxError(n ast.NodeID) bool {
	return m.idx.AccessorSet[n] || m.idx.ConstructorSet[n]
}
