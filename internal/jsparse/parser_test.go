package jsparse_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asyncify/asyncify/internal/ast"
	"github.com/asyncify/asyncify/internal/engine/enginerr"
	"github.com/asyncify/asyncify/internal/jsparse"
)

func TestParseTwoFunctionsMinimal(t *testing.T) {
	src := `
function a() {
  return b();
}

async function b() {
  return 1;
}
`
	tree, err := jsparse.New().Parse(context.Background(), []byte(src))
	require.NoError(t, err)

	var fnNames []string
	tree.Walk(tree.Root, func(id ast.NodeID) {
		n := tree.Node(id)
		if n.Kind == ast.FunctionDeclaration {
			fnNames = append(fnNames, tree.Node(n.FnID).Name)
		}
	}, nil)

	assert.ElementsMatch(t, []string{"a", "b"}, fnNames)
}

func TestParseSyntaxError(t *testing.T) {
	_, err := jsparse.New().Parse(context.Background(), []byte("function ( { ] )"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, enginerr.ErrSyntax))
}

func TestParseMarksAsyncFunctions(t *testing.T) {
	src := `async function fetchData() { await x(); }`
	tree, err := jsparse.New().Parse(context.Background(), []byte(src))
	require.NoError(t, err)

	var found bool
	tree.Walk(tree.Root, func(id ast.NodeID) {
		n := tree.Node(id)
		if n.Kind == ast.FunctionDeclaration {
			found = true
			assert.True(t, n.IsAsync)
		}
	}, nil)
	assert.True(t, found, "expected to find fetchData")
}

func TestParseObjectLiteralWithMethodAndGetter(t *testing.T) {
	src := `
const obj = {
  value: 1,
  get computed() { return this.value; },
  method() { return this.value; },
};
`
	tree, err := jsparse.New().Parse(context.Background(), []byte(src))
	require.NoError(t, err)

	var decl *ast.Node
	tree.Walk(tree.Root, func(id ast.NodeID) {
		n := tree.Node(id)
		if n.Kind == ast.VariableDeclarator && n.DeclID != ast.NoNode && tree.Node(n.DeclID).Name == "obj" {
			decl = n
		}
	}, nil)
	require.NotNil(t, decl)

	obj := tree.Node(decl.Value)
	require.Equal(t, ast.ObjectExpression, obj.Kind)
	require.Len(t, obj.Properties, 3)

	kinds := map[string]ast.PropertyKind{}
	for _, p := range obj.Properties {
		prop := tree.Node(p)
		kinds[tree.Node(prop.Key).Name] = prop.PropKind
	}
	assert.Equal(t, ast.PropInit, kinds["value"])
	assert.Equal(t, ast.PropGet, kinds["computed"])
	assert.Equal(t, ast.PropInit, kinds["method"])
}

func TestParseClassDesugarsToObjectExpression(t *testing.T) {
	src := `
class Widget {
  constructor() { this.state = 1; }
  render() { return this.state; }
}
`
	tree, err := jsparse.New().Parse(context.Background(), []byte(src))
	require.NoError(t, err)

	var decl *ast.Node
	tree.Walk(tree.Root, func(id ast.NodeID) {
		n := tree.Node(id)
		if n.Kind == ast.VariableDeclarator && n.DeclID != ast.NoNode && tree.Node(n.DeclID).Name == "Widget" {
			decl = n
		}
	}, nil)
	require.NotNil(t, decl, "class declaration should desugar to a VariableDeclarator")

	obj := tree.Node(decl.Value)
	require.Equal(t, ast.ObjectExpression, obj.Kind)
	require.Len(t, obj.Properties, 2)
}

func TestAnalyzeScopesResolvesNestedFunctionReference(t *testing.T) {
	src := `
function outer(x) {
  function inner() {
    return x;
  }
  return inner;
}
`
	tree, err := jsparse.New().Parse(context.Background(), []byte(src))
	require.NoError(t, err)

	scopes, funcScope := jsparse.AnalyzeScopes(tree)

	var innerID ast.NodeID = ast.NoNode
	tree.Walk(tree.Root, func(id ast.NodeID) {
		n := tree.Node(id)
		if n.Kind == ast.FunctionDeclaration && tree.Node(n.FnID).Name == "inner" {
			innerID = id
		}
	}, nil)
	require.NotEqual(t, ast.NoNode, innerID)

	innerScope := funcScope[innerID]
	binding, foundIn := scopes.Lookup(innerScope, "x")
	require.NotNil(t, binding)
	assert.NotEqual(t, innerScope, foundIn, "x should resolve in outer's scope, not inner's own")
}
