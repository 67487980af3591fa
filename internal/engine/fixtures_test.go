package engine_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asyncify/asyncify/internal/ast"
	"github.com/asyncify/asyncify/internal/config"
	"github.com/asyncify/asyncify/internal/engine"
	"github.com/asyncify/asyncify/internal/reportwriter"
)

func fixturesRoot(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	return filepath.Join(wd, "..", "..", "testdata", "jsfixtures")
}

func TestTopFunctionsMatchesExpectedCallstack(t *testing.T) {
	root := filepath.Join(fixturesRoot(t), "top-functions")

	e := engine.New(root, engine.Options{})
	_, err := e.AppendFile("fixture.js")
	require.NoError(t, err)
	require.NoError(t, e.Parse(context.Background()))

	seed, ok := e.FunctionNodeFromLine("fixture.js", 19, 0)
	require.True(t, ok)

	asyncMap, err := e.GetAsyncStacks(seed)
	require.NoError(t, err)

	reg := reportwriter.NewRegistry()
	w, err := reg.Get("plain")
	require.NoError(t, err)

	out, err := w.Write(reportwriter.FromModel(e.Report(seed, asyncMap)))
	require.NoError(t, err)

	wantBytes, err := os.ReadFile(filepath.Join(root, "expected-callstack.txt"))
	require.NoError(t, err)
	assert.Equal(t, string(wantBytes), out)
}

func TestNameCollisionFixtureIsolatesSiblingScopes(t *testing.T) {
	root := filepath.Join(fixturesRoot(t), "name-collision")

	e := engine.New(root, engine.Options{})
	_, err := e.AppendFile("fixture.js")
	require.NoError(t, err)
	require.NoError(t, e.Parse(context.Background()))

	helper1, ok := e.FunctionNodeFromLine("fixture.js", 2, 0)
	require.True(t, ok)
	caller2, ok := e.FunctionNodeFromLine("fixture.js", 15, 0)
	require.True(t, ok)

	asyncMap, err := e.GetAsyncStacks(helper1)
	require.NoError(t, err)

	for key := range asyncMap.Edges {
		assert.NotEqual(t, caller2, key, "a sibling scope's caller must never be marked async")
	}
}

func TestPrototypeAssignFixtureReachesConstructorThroughThisMethod(t *testing.T) {
	root := filepath.Join(fixturesRoot(t), "prototype-assign")

	e := engine.New(root, engine.Options{})
	_, err := e.AppendFile("fixture.js")
	require.NoError(t, err)
	require.NoError(t, e.Parse(context.Background()))

	method, ok := e.FunctionNodeFromLine("fixture.js", 5, 0)
	require.True(t, ok)
	ctor, ok := e.FunctionNodeFromLine("fixture.js", 1, 0)
	require.True(t, ok)

	asyncMap, err := e.GetAsyncStacks(method)
	require.NoError(t, err)

	_, ctorMarked := asyncMap.Edges[ctor]
	assert.True(t, ctorMarked, "the constructor must be reached via this.method in its own body")

	m := e.Report(method, asyncMap)
	assert.True(t, m.IsAsyncSyntaxError(ctor), "marking a constructor async is a SyntaxError diagnostic")
}

func TestObjectDefineThisMatchFixtureMarksQualifiedCallerOnly(t *testing.T) {
	root := filepath.Join(fixturesRoot(t), "object-define-this-match")

	e := engine.New(root, engine.Options{})
	_, err := e.AppendFile("fixture.js")
	require.NoError(t, err)
	require.NoError(t, e.Parse(context.Background()))

	propertyC, ok := e.FunctionNodeFromLine("fixture.js", 5, 0)
	require.True(t, ok)
	propertyB, ok := e.FunctionNodeFromLine("fixture.js", 2, 0)
	require.True(t, ok)
	freeC, ok := e.FunctionNodeFromLine("fixture.js", 10, 0)
	require.True(t, ok)

	asyncMap, err := e.GetAsyncStacks(propertyC)
	require.NoError(t, err)

	// b has no callers of its own, so it gets no AsyncMap entry; it is marked
	// as the AsyncNode of the edge for its this.c() call.
	bMarked := false
	for _, edge := range asyncMap.Edges[propertyC] {
		if edge.AsyncNode == propertyB {
			bMarked = true
		}
	}
	assert.True(t, bMarked, "this.c() inside the object's b method must mark b async")

	for key := range asyncMap.Edges {
		assert.NotEqual(t, freeC, key, "the unrelated free function sharing the name c must never be marked async")
	}
}

func TestObjectDefineNameMismatchFixtureHonorsConfiguredIgnore(t *testing.T) {
	root := filepath.Join(fixturesRoot(t), "object-define-name-mismatch")

	cfg, err := config.LoadDriverConfig(filepath.Join(root, "ignore.yaml"))
	require.NoError(t, err)

	e := engine.New(root, engine.Options{})
	for _, s := range cfg.Driver.Scripts {
		_, err := e.AppendFile(s)
		require.NoError(t, err)
	}
	require.NoError(t, e.Parse(context.Background()))

	for _, ig := range cfg.Driver.Ignore {
		n, ok := e.NodeByLineFilterIndex(ig.Path, ig.Line, ig.Index, func(k ast.Kind) bool { return ig.Type == "" || string(k) == ig.Type })
		require.True(t, ok)
		e.MarkIgnored(n)
	}

	seed, ok := e.FunctionNodeFromLine(cfg.Driver.MarkAsync.Path, cfg.Driver.MarkAsync.Line, cfg.Driver.MarkAsync.FunctionIndex)
	require.True(t, ok)
	caller, ok := e.FunctionNodeFromLine("fixture.js", 1, 0)
	require.True(t, ok)

	asyncMap, err := e.GetAsyncStacks(seed)
	require.NoError(t, err)

	_, callerMarked := asyncMap.Edges[caller]
	assert.False(t, callerMarked, "the ignored call site must not propagate async to its enclosing caller")
}

func TestSyntaxErrorFixtureRejectsParse(t *testing.T) {
	root := filepath.Join(fixturesRoot(t), "syntax-error")

	e := engine.New(root, engine.Options{})
	_, err := e.AppendFile("fixture.js")
	require.NoError(t, err)

	err = e.Parse(context.Background())
	assert.Error(t, err)
}
