// Package propagate implements AsyncPropagator (spec.md §4.5): the
// monotonic FIFO worklist that propagates "async" from a seed function
// through its await-callers.
//
// Grounded in style on the teacher's internal/jobs pipeline (a worklist
// draining a queue, each iteration producing a bounded batch of further
// work) though the queue itself is plain in-process FIFO here, not NATS —
// the core is specified as single-threaded and synchronous (SPEC_FULL.md
// §5).
package propagate

import (
	"sort"

	"github.com/asyncify/asyncify/internal/ast"
	"github.com/asyncify/asyncify/internal/ignore"
	"github.com/asyncify/asyncify/internal/index"
	"github.com/asyncify/asyncify/internal/report"
	"github.com/asyncify/asyncify/internal/scope"
)

// Propagate runs the worklist algorithm of spec.md §4.5 starting at seed and
// returns the resulting AsyncMap.
func Propagate(idx *index.Index, scopes *scope.Tree, tree *ast.Tree, ig *ignore.Set, seed ast.NodeID) (*report.AsyncMap, error) {
	p := &propagator{idx: idx, scopes: scopes, tree: tree, ignore: ig}
	return p.run(seed)
}

type propagator struct {
	idx    *index.Index
	scopes *scope.Tree
	tree   *ast.Tree
	ignore *ignore.Set
}

func (p *propagator) run(seed ast.NodeID) (*report.AsyncMap, error) {
	asyncMap := report.NewAsyncMap(seed)

	work := []ast.NodeID{seed}
	scheduled := map[ast.NodeID]bool{seed: true}

	for len(work) > 0 {
		g := work[0]
		work = work[1:]

		if p.ignore.Contains(g) {
			continue
		}

		awaits, err := p.awaitCandidates(g)
		if err != nil {
			return nil, err
		}
		if len(awaits) == 0 {
			continue
		}

		var edges []report.Edge
		for _, a := range awaits {
			if p.ignore.Contains(a) {
				continue
			}
			parent := p.idx.EnclosingFunction[a]
			edge := report.Edge{AwaitNode: a, AsyncNode: ast.NoNode}
			if parent != ast.NoNode && !p.ignore.Contains(parent) {
				if !p.tree.Node(parent).IsAsync {
					edge.AsyncNode = parent
				}
				if !scheduled[parent] {
					scheduled[parent] = true
					work = append(work, parent)
				}
			}
			edges = append(edges, edge)
		}
		asyncMap.Set(g, edges)
	}

	return asyncMap, nil
}

// awaitCandidates implements the union described in spec.md §4.5: calls by
// short name, bare reads when g is an accessor, and constructor
// self-references, filtered by scope reachability and InAwaitSet
// exclusion.
func (p *propagator) awaitCandidates(g ast.NodeID) ([]ast.NodeID, error) {
	name, err := p.idx.NameOf(g)
	if err != nil {
		return nil, err
	}

	seen := make(map[ast.NodeID]bool)
	var out []ast.NodeID
	add := func(c ast.NodeID) {
		if seen[c] {
			return
		}
		seen[c] = true
		out = append(out, c)
	}

	for _, c := range p.idx.Calls[name] {
		add(c)
	}
	if p.idx.AccessorSet[g] {
		for _, c := range p.idx.Reads[name] {
			add(c)
		}
	}
	if ctor, ok := p.idx.ConstructorMap[g]; ok {
		// MembersOfConstructor is a set; visit it in NodeID (parse) order so
		// repeated runs produce the same edge order.
		props := make([]ast.NodeID, 0, len(p.idx.MembersOfConstructor[ctor]))
		for prop := range p.idx.MembersOfConstructor[ctor] {
			props = append(props, prop)
		}
		sort.Slice(props, func(i, j int) bool { return props[i] < props[j] })
		for _, prop := range props {
			propName, err := p.idx.NameOf(prop)
			if err != nil {
				return nil, err
			}
			if propName == name {
				add(prop)
			}
		}
	}

	gScope := p.idx.OwnerOfScope[g]
	filtered := out[:0]
	for _, c := range out {
		if p.idx.InAwaitSet[c] {
			continue
		}
		cScope := p.idx.OwnerOfScope[c]
		if p.scopes.IsAncestor(gScope, cScope) {
			filtered = append(filtered, c)
		}
	}
	return filtered, nil
}
