package engine_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asyncify/asyncify/internal/ast"
	"github.com/asyncify/asyncify/internal/engine"
	"github.com/asyncify/asyncify/internal/engine/enginerr"
)

func TestAppendFileIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.js"), []byte("function a() {}\n"), 0o644))

	e := engine.New(dir, engine.Options{})
	h1, err := e.AppendFile("a.js")
	require.NoError(t, err)
	h2, err := e.AppendFile("a.js")
	require.NoError(t, err)
	assert.Equal(t, h1, h2)

	require.NoError(t, e.Parse(context.Background()))
	fn, ok := e.FunctionNodeFromLine("a.js", 1, 0)
	require.True(t, ok)
	_ = fn
}

func TestAppendFileRejectsPathEscape(t *testing.T) {
	dir := t.TempDir()
	e := engine.New(dir, engine.Options{})
	_, err := e.AppendFile("../outside.js")
	require.Error(t, err)
	assert.True(t, errors.Is(err, enginerr.ErrPathEscape))
}

func TestAppendFileMissingIsIO(t *testing.T) {
	dir := t.TempDir()
	e := engine.New(dir, engine.Options{})
	_, err := e.AppendFile("missing.js")
	require.Error(t, err)
	assert.True(t, errors.Is(err, enginerr.ErrIO))
}

func TestParseRejectsSyntaxError(t *testing.T) {
	e := engine.New(t.TempDir(), engine.Options{})
	require.NoError(t, e.AppendSource("broken.js", 1, "function ( { ] )"))
	err := e.Parse(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, enginerr.ErrSyntax))
}

func TestTwoFunctionsMinimalEndToEnd(t *testing.T) {
	e := engine.New(t.TempDir(), engine.Options{})
	require.NoError(t, e.AppendSource("a.js", 1, "function a() { return b(); }\n"))
	require.NoError(t, e.AppendSource("b.js", 1, "function b() { return 1; }\n"))
	require.NoError(t, e.Parse(context.Background()))

	seed, ok := e.FunctionNodeFromLine("b.js", 1, 0)
	require.True(t, ok)

	asyncMap, err := e.GetAsyncStacks(seed)
	require.NoError(t, err)

	aFn, ok := e.FunctionNodeFromLine("a.js", 1, 0)
	require.True(t, ok)

	edges := asyncMap.Edges[seed]
	require.Len(t, edges, 1)
	assert.Equal(t, aFn, edges[0].AsyncNode)
}

func TestGetAsyncStacksIsIdempotent(t *testing.T) {
	e := engine.New(t.TempDir(), engine.Options{})
	require.NoError(t, e.AppendSource("a.js", 1, "function a() { return b(); }\n"))
	require.NoError(t, e.AppendSource("b.js", 1, "function b() { return 1; }\n"))
	require.NoError(t, e.Parse(context.Background()))

	seed, ok := e.FunctionNodeFromLine("b.js", 1, 0)
	require.True(t, ok)

	m1, err := e.GetAsyncStacks(seed)
	require.NoError(t, err)
	m2, err := e.GetAsyncStacks(seed)
	require.NoError(t, err)

	assert.Equal(t, m1.Order, m2.Order)
	assert.Equal(t, m1.Edges, m2.Edges)
}

func TestMarkIgnoredPreventsFurtherScheduling(t *testing.T) {
	e := engine.New(t.TempDir(), engine.Options{})
	require.NoError(t, e.AppendSource("fixture.js", 1, `
function target() { return 1; }
function caller() { return target(); }
`))
	require.NoError(t, e.Parse(context.Background()))

	seed, ok := e.FunctionNodeFromLine("fixture.js", 2, 0)
	require.True(t, ok)
	caller, ok := e.FunctionNodeFromLine("fixture.js", 3, 0)
	require.True(t, ok)

	e.MarkIgnored(caller)

	asyncMap, err := e.GetAsyncStacks(seed)
	require.NoError(t, err)

	for _, key := range asyncMap.Order {
		assert.NotEqual(t, caller, key, "an ignored function must never be scheduled")
	}
	_ = ast.NoNode
}
