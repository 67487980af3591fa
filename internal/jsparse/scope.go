package jsparse

import (
	"github.com/asyncify/asyncify/internal/ast"
	"github.com/asyncify/asyncify/internal/scope"
)

// AnalyzeScopes builds the lexical scope tree for tree, per SPEC_FULL.md
// §4.2's Parser+ScopeAnalyzer split: the parser above produces a pure AST,
// this pass walks it to open a child scope at every function-like node and
// record where every declared name is visible.
//
// It returns the scope tree plus FuncScope, mapping each function-like
// node to the ID of the scope its own parameters and body execute in (as
// opposed to the scope the function's own binding lives in, which is
// whatever scope was current when the declaration was encountered).
func AnalyzeScopes(tree *ast.Tree) (*scope.Tree, map[ast.NodeID]scope.ID) {
	scopes := scope.NewTree()
	funcScope := make(map[ast.NodeID]scope.ID)

	a := &scopeAnalyzer{tree: tree, scopes: scopes, funcScope: funcScope}
	a.walk(tree.Root, scopes.Root)
	return scopes, funcScope
}

type scopeAnalyzer struct {
	tree      *ast.Tree
	scopes    *scope.Tree
	funcScope map[ast.NodeID]scope.ID
}

// walk processes n in cur (the scope active for n itself), defining any
// bindings n introduces in cur, then recurses into children using whatever
// scope is appropriate for them.
func (a *scopeAnalyzer) walk(id ast.NodeID, cur scope.ID) {
	if id == ast.NoNode {
		return
	}
	n := a.tree.Node(id)

	switch n.Kind {
	case ast.FunctionDeclaration:
		// The function's own name is visible in the enclosing scope (and,
		// for named function expressions, in its own body too — SPEC_FULL.md
		// does not distinguish the two cases, so both bindings point at the
		// same declaration).
		if n.FnID != ast.NoNode {
			a.scopes.Define(cur, a.tree.Node(n.FnID).Name, id)
		}
		inner := a.scopes.Enter(cur, id)
		a.funcScope[id] = inner
		a.defineParams(n, inner)
		for _, c := range n.Children {
			if c == n.FnID {
				continue
			}
			a.walk(c, inner)
		}
		return

	case ast.FunctionExpression, ast.ArrowFunctionExpression:
		inner := a.scopes.Enter(cur, id)
		a.funcScope[id] = inner
		if n.FnID != ast.NoNode {
			a.scopes.Define(inner, a.tree.Node(n.FnID).Name, id)
		}
		a.defineParams(n, inner)
		for _, c := range n.Children {
			if c == n.FnID {
				continue
			}
			a.walk(c, inner)
		}
		return

	case ast.VariableDeclarator:
		if n.DeclID != ast.NoNode {
			a.defineFromPattern(n.DeclID, cur, id)
		}
		if n.Value != ast.NoNode {
			a.walk(n.Value, cur)
		}
		return
	}

	for _, c := range n.Children {
		a.walk(c, cur)
	}
}

func (a *scopeAnalyzer) defineParams(n *ast.Node, inner scope.ID) {
	for _, p := range n.FnParams {
		a.defineFromPattern(p, inner, p)
	}
}

// defineFromPattern defines every identifier a (possibly destructuring)
// binding pattern introduces, all pointing at def.
func (a *scopeAnalyzer) defineFromPattern(patternID ast.NodeID, cur scope.ID, def ast.NodeID) {
	if patternID == ast.NoNode {
		return
	}
	n := a.tree.Node(patternID)
	switch n.Kind {
	case ast.Identifier:
		a.scopes.Define(cur, n.Name, def)
	case ast.ObjectPattern:
		for _, p := range n.Properties {
			prop := a.tree.Node(p)
			a.defineFromPattern(prop.Value, cur, def)
		}
	case ast.ArrayPattern:
		for _, e := range n.Elements {
			a.defineFromPattern(e, cur, def)
		}
	}
}
