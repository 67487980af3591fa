package reportwriter_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asyncify/asyncify/internal/engine"
	"github.com/asyncify/asyncify/internal/reportwriter"
)

func TestMarkdownWriterRendersEdges(t *testing.T) {
	eng := engine.New(".", engine.Options{})
	require.NoError(t, eng.AppendSource("a.js", 1, "function a() { return b(); }\n"))
	require.NoError(t, eng.AppendSource("b.js", 1, "function b() { return 1; }\n"))
	require.NoError(t, eng.Parse(context.Background()))

	seed, ok := eng.FunctionNodeFromLine("b.js", 1, 0)
	require.True(t, ok)

	m, err := eng.GetAsyncStacks(seed)
	require.NoError(t, err)

	reg := reportwriter.NewRegistry()
	w, err := reg.Get("markdown")
	require.NoError(t, err)

	out, err := w.Write(reportwriter.FromModel(eng.Report(seed, m)))
	require.NoError(t, err)
	assert.Contains(t, out, "Async propagation from `b`")
	assert.Contains(t, out, "marks `a` async")
}

func TestUnknownWriterErrors(t *testing.T) {
	reg := reportwriter.NewRegistry()
	_, err := reg.Get("nonexistent")
	assert.Error(t, err)
}
