package index

import (
	"github.com/asyncify/asyncify/internal/ast"
	"github.com/asyncify/asyncify/internal/ignore"
	"github.com/asyncify/asyncify/internal/scope"
)

// pass2 is the semantic pass of spec.md §4.3: prototype/constructor
// reasoning, accessor detection, this-member capture, await-depth capture,
// and reference indexing into calls[]/reads[].
type pass2 struct {
	idx       *Index
	tree      *ast.Tree
	scopes    *scope.Tree
	funcScope map[ast.NodeID]scope.ID
	ignore    *ignore.Set

	awaitDepth int
}

func (p *pass2) run(root ast.NodeID, curScope scope.ID, curFunc ast.NodeID) error {
	return p.visit(root, curScope, curFunc)
}

func (p *pass2) visit(id ast.NodeID, curScope scope.ID, curFunc ast.NodeID) error {
	if id == ast.NoNode {
		return nil
	}
	n := p.idx.tree.Node(id)

	if p.awaitDepth > 0 && n.Kind != ast.AwaitExpression {
		p.idx.InAwaitSet[id] = true
	}

	switch n.Kind {
	case ast.Property:
		if n.PropKind != ast.PropInit && n.Value != ast.NoNode {
			p.idx.AccessorSet[n.Value] = true
		}
	case ast.MemberExpression:
		if !n.Computed && n.Object != ast.NoNode && p.idx.tree.Node(n.Object).Kind == ast.ThisExpression && n.Key != ast.NoNode {
			if p.idx.MembersOfConstructor[curFunc] == nil {
				p.idx.MembersOfConstructor[curFunc] = make(map[ast.NodeID]bool)
			}
			p.idx.MembersOfConstructor[curFunc][n.Key] = true
		}
	case ast.NewExpression:
		p.recordInstantiation(n, curScope)
	case ast.AssignmentExpression:
		p.recordPrototypeAssociation(n, curScope)
	}

	if err := p.indexReference(id, n); err != nil {
		return err
	}

	nextScope, nextFunc := curScope, curFunc
	if n.Kind.IsFunctionLike() {
		nextScope = p.funcScope[id]
		nextFunc = id
	}
	if n.Kind == ast.AwaitExpression {
		p.awaitDepth++
	}

	for _, c := range n.Children {
		useScope, useFunc := nextScope, nextFunc
		if n.Kind.IsFunctionLike() && c == n.FnID {
			useScope, useFunc = curScope, curFunc
		}
		if err := p.visit(c, useScope, useFunc); err != nil {
			return err
		}
	}

	if n.Kind == ast.AwaitExpression {
		p.awaitDepth--
	}
	return nil
}

// recordInstantiation implements the "Instantiation" rule of spec.md §4.3:
// resolve F through the current scope chain and, if it names a
// function-like node, add that node to ConstructorSet.
func (p *pass2) recordInstantiation(n *ast.Node, curScope scope.ID) {
	callee := n.Callee
	if callee == ast.NoNode || p.idx.tree.Node(callee).Kind != ast.Identifier {
		return
	}
	name := p.idx.tree.Node(callee).Name
	binding, _ := p.scopes.Lookup(curScope, name)
	if binding == nil {
		return
	}
	if p.idx.tree.Node(binding.Def).Kind.IsFunctionLike() {
		p.idx.ConstructorSet[binding.Def] = true
	}
}

// recordPrototypeAssociation implements Forms A and B of spec.md §4.3's
// prototype/constructor reasoning.
//
// Form A: `X.prototype = { ... }` — every function-valued property of the
// right-hand object literal is associated with X's definition.
// Form B: `X.prototype.foo = function(){}` — the right-hand function is
// associated with X's definition directly.
func (p *pass2) recordPrototypeAssociation(n *ast.Node, curScope scope.ID) {
	left := n.Left
	if left == ast.NoNode || p.idx.tree.Node(left).Kind != ast.MemberExpression {
		return
	}
	leftMember := p.idx.tree.Node(left)

	// Form A: left is `X.prototype`.
	if !leftMember.Computed && leftMember.Key != ast.NoNode && p.idx.tree.Node(leftMember.Key).Name == "prototype" {
		ctor := p.resolveConstructorDef(leftMember.Object, curScope)
		if ctor == ast.NoNode || n.Right == ast.NoNode {
			return
		}
		right := p.idx.tree.Node(n.Right)
		if right.Kind != ast.ObjectExpression {
			return
		}
		for _, propID := range right.Properties {
			prop := p.idx.tree.Node(propID)
			if prop.Value != ast.NoNode && p.idx.tree.Node(prop.Value).Kind.IsFunctionLike() {
				p.idx.ConstructorMap[prop.Value] = ctor
			}
		}
		return
	}

	// Form B: left is `X.prototype.foo`, i.e. Object is itself `X.prototype`.
	if leftMember.Object == ast.NoNode || p.idx.tree.Node(leftMember.Object).Kind != ast.MemberExpression {
		return
	}
	inner := p.idx.tree.Node(leftMember.Object)
	if inner.Computed || inner.Key == ast.NoNode || p.idx.tree.Node(inner.Key).Name != "prototype" {
		return
	}
	ctor := p.resolveConstructorDef(inner.Object, curScope)
	if ctor == ast.NoNode || n.Right == ast.NoNode {
		return
	}
	if p.idx.tree.Node(n.Right).Kind.IsFunctionLike() {
		p.idx.ConstructorMap[n.Right] = ctor
	}
}

func (p *pass2) resolveConstructorDef(obj ast.NodeID, curScope scope.ID) ast.NodeID {
	if obj == ast.NoNode || p.idx.tree.Node(obj).Kind != ast.Identifier {
		return ast.NoNode
	}
	name := p.idx.tree.Node(obj).Name
	binding, _ := p.scopes.Lookup(curScope, name)
	if binding == nil {
		return ast.NoNode
	}
	return binding.Def
}

// indexReference implements the reference-indexing rule of spec.md §4.3.
// It runs for CallExpression, NewExpression, MemberExpression, Identifier
// and VariableDeclarator nodes, matching the calls[]/reads[] population
// described in §3. Ignored or accessor-valued nodes are excluded — though
// in the pinned Engine call order (Parse before MarkIgnored) the ignore
// set is always empty at this point; see DESIGN.md.
func (p *pass2) indexReference(id ast.NodeID, n *ast.Node) error {
	switch n.Kind {
	case ast.CallExpression, ast.NewExpression, ast.MemberExpression, ast.Identifier, ast.VariableDeclarator:
	default:
		return nil
	}
	if p.ignore.Contains(id) || p.idx.AccessorSet[id] {
		return nil
	}
	k, err := p.idx.NameOf(id)
	if err != nil {
		return err
	}
	if n.Kind == ast.CallExpression || n.Kind == ast.NewExpression {
		p.idx.Calls[k] = append(p.idx.Calls[k], id)
	} else {
		p.idx.Reads[k] = append(p.idx.Reads[k], id)
	}
	return nil
}
