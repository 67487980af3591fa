// Package scope models the lexical scope tree built alongside the AST.
//
// The shape is grounded on two patterns from the example pack: the
// parent-linked Scope/Variable model of a JS taint tracker, generalized from
// map[name]*Variable to map[name]*Binding, and the arena-addressed Binding
// type from a Starlark resolver (a Binding ties together every reference to
// one declared name; Scope here plays the role that resolver's Binding.Scope
// enum does not need, since this engine only cares about lexical nesting,
// not free/cell distinctions).
package scope

import "github.com/asyncify/asyncify/internal/ast"

// ID addresses a Scope within a Tree.
type ID int

// NoScope is the sentinel for "no enclosing scope" (only the program scope
// has no parent; every other scope's parent is well-defined).
const NoScope ID = -1

// Binding records where a name was declared. References is not filled in
// by jsparse.AnalyzeScopes, so after scope analysis it is always empty.
type Binding struct {
	Name       string
	Def        ast.NodeID
	References []ast.NodeID
}

// Scope is one node of the lexical scope tree. The outermost Scope (Parent
// == NoScope) is the program scope.
type Scope struct {
	ID       ID
	Parent   ID
	Owner    ast.NodeID // the function-like node that opened this scope, or NoNode for the program scope
	Bindings map[string]*Binding
}

// Tree owns every Scope in a parsed unit.
type Tree struct {
	scopes []Scope
	Root   ID
}

// NewTree returns a scope tree containing only the program scope.
func NewTree() *Tree {
	t := &Tree{scopes: make([]Scope, 0, 16)}
	t.Root = t.push(NoScope, ast.NoNode)
	return t
}

func (t *Tree) push(parent ID, owner ast.NodeID) ID {
	id := ID(len(t.scopes))
	t.scopes = append(t.scopes, Scope{ID: id, Parent: parent, Owner: owner, Bindings: make(map[string]*Binding)})
	return id
}

// Enter opens a new child scope owned by owner (a function-like node) and
// returns its ID.
func (t *Tree) Enter(parent ID, owner ast.NodeID) ID {
	return t.push(parent, owner)
}

// Scope dereferences a scope ID.
func (t *Tree) Scope(id ID) *Scope { return &t.scopes[id] }

// Define records a new binding for name in scope id, returning the binding
// so the caller can append references to it.
func (t *Tree) Define(id ID, name string, def ast.NodeID) *Binding {
	b := &Binding{Name: name, Def: def}
	t.scopes[id].Bindings[name] = b
	return b
}

// Lookup walks the parent chain starting at id looking for name, returning
// the binding and the scope it was found in.
func (t *Tree) Lookup(id ID, name string) (*Binding, ID) {
	for cur := id; cur != NoScope; cur = t.scopes[cur].Parent {
		if b, ok := t.scopes[cur].Bindings[name]; ok {
			return b, cur
		}
	}
	return nil, NoScope
}

// IsAncestor reports whether ancestor is on the reflexive-transitive parent
// chain of id — "scope ancestor" in the glossary sense used by the
// propagator's reachability filter.
func (t *Tree) IsAncestor(ancestor, id ID) bool {
	for cur := id; cur != NoScope; cur = t.scopes[cur].Parent {
		if cur == ancestor {
			return true
		}
	}
	return false
}
