package index

import (
	"github.com/asyncify/asyncify/internal/ast"
	"github.com/asyncify/asyncify/internal/buffer"
	"github.com/asyncify/asyncify/internal/scope"
)

// pass1 is the line/scope pass of spec.md §4.3: attach each node's derived
// origin and populate NodeIndex, and maintain the scope/enclosing-function
// cursor that pops back out on leave.
type pass1 struct {
	idx       *Index
	tree      *ast.Tree
	buf       *buffer.Buffer
	funcScope map[ast.NodeID]scope.ID
}

func (p *pass1) run(id ast.NodeID, curScope scope.ID, curFunc ast.NodeID) {
	p.visit(id, curScope, curFunc)
}

func (p *pass1) visit(id ast.NodeID, curScope scope.ID, curFunc ast.NodeID) {
	if id == ast.NoNode {
		return
	}
	n := p.idx.tree.Node(id)

	p.idx.OwnerOfScope[id] = curScope
	p.idx.EnclosingFunction[id] = curFunc

	if path, line, ok := p.buf.LocateOrigin(n.Range.Start.Line); ok {
		l := Line{Path: path, Line: line}
		p.idx.FileLine[id] = l
		p.idx.NodeIndex[l] = append(p.idx.NodeIndex[l], id)
	}

	switch n.Kind {
	case ast.Property:
		if n.Value != ast.NoNode && n.Key != ast.NoNode {
			p.idx.OwnerOfProperty[n.Value] = n.Key
		}
	case ast.AssignmentExpression:
		if n.Right != ast.NoNode && n.Left != ast.NoNode {
			p.idx.OwnerOfProperty[n.Right] = n.Left
		}
	}

	nextScope, nextFunc := curScope, curFunc
	if n.Kind.IsFunctionLike() {
		nextScope = p.funcScope[id]
		nextFunc = id
	}

	for _, c := range n.Children {
		if n.Kind.IsFunctionLike() && c == n.FnID {
			p.visit(c, curScope, curFunc)
			continue
		}
		p.visit(c, nextScope, nextFunc)
	}
}
