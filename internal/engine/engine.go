// Package engine implements the Engine façade of SPEC_FULL.md §4.7: the
// single entry point gluing SourceBuffer, Parser+ScopeAnalyzer, IndexBuilder,
// IgnoreSet, AsyncPropagator and ReportModel together, the way the teacher's
// internal/workspace glued its own subsystems into one orchestration type.
package engine

import (
	"context"
	"fmt"

	"github.com/asyncify/asyncify/internal/ast"
	"github.com/asyncify/asyncify/internal/buffer"
	"github.com/asyncify/asyncify/internal/engine/enginerr"
	"github.com/asyncify/asyncify/internal/ignore"
	"github.com/asyncify/asyncify/internal/index"
	"github.com/asyncify/asyncify/internal/jsparse"
	"github.com/asyncify/asyncify/internal/propagate"
	"github.com/asyncify/asyncify/internal/report"
	"github.com/asyncify/asyncify/internal/scope"
)

// Handle identifies a fragment appended via AppendFile. It is the
// relativePath argument itself, so repeated calls with the same relativePath
// return the same Handle; a repeated call for an already appended resolved
// path appends nothing (spec.md §4.1's idempotence requirement).
type Handle string

// Options is the single immutable configuration record passed at
// construction, per spec.md §9 ("configuration objects substitute for
// dynamic named parameters"). No keys are currently observable, matching
// spec.md §6 — reserved for future behavioral toggles.
type Options struct{}

// Engine is the pinned façade of SPEC_FULL.md §6.
type Engine struct {
	buf    *buffer.Buffer
	parser *jsparse.Parser
	ignore *ignore.Set

	tree   *ast.Tree
	scopes *scope.Tree
	idx    *index.Index
}

// New returns an Engine rooted at rootDir for resolving appendFile calls.
func New(rootDir string, _ Options) *Engine {
	return &Engine{
		buf:    buffer.New(rootDir),
		parser: jsparse.New(),
		ignore: ignore.New(),
	}
}

// AppendSource appends a named in-memory fragment, per spec.md §4.1.
func (e *Engine) AppendSource(path string, firstLine int, text string) error {
	return e.buf.AppendSource(path, firstLine, text)
}

// AppendFile reads relativePath under the engine's root and appends it.
func (e *Engine) AppendFile(relativePath string) (Handle, error) {
	if err := e.buf.AppendFile(relativePath); err != nil {
		return "", err
	}
	return Handle(relativePath), nil
}

// Parse runs the Parser+ScopeAnalyzer and IndexBuilder over everything
// appended so far (spec.md §4.2, §4.3).
func (e *Engine) Parse(ctx context.Context) error {
	tree, err := e.parser.Parse(ctx, []byte(e.buf.Text()))
	if err != nil {
		return err
	}
	scopes, funcScope := jsparse.AnalyzeScopes(tree)

	idx, err := index.Build(tree, scopes, funcScope, e.buf, e.ignore)
	if err != nil {
		return err
	}

	e.tree, e.scopes, e.idx = tree, scopes, idx
	return nil
}

// MarkIgnored adds n to the engine's IgnoreSet (spec.md §4.4).
func (e *Engine) MarkIgnored(n ast.NodeID) {
	e.ignore.Mark(n)
}

// NodeByLineFilterIndex fetches the index-th node matching predicate among
// nodes at (path, line), per spec.md §6.
func (e *Engine) NodeByLineFilterIndex(path string, line, idx int, predicate func(ast.Kind) bool) (ast.NodeID, bool) {
	if e.idx == nil {
		return ast.NoNode, false
	}
	nodes := e.idx.NodeIndex[index.Line{Path: path, Line: line}]
	matched := 0
	for _, n := range nodes {
		if !predicate(e.tree.Node(n).Kind) {
			continue
		}
		if matched == idx {
			return n, true
		}
		matched++
	}
	return ast.NoNode, false
}

// FunctionNodeFromLine is sugar for NodeByLineFilterIndex with predicate
// "function-like", per spec.md §6.
func (e *Engine) FunctionNodeFromLine(path string, line, functionIndex int) (ast.NodeID, bool) {
	return e.NodeByLineFilterIndex(path, line, functionIndex, ast.Kind.IsFunctionLike)
}

// GetAsyncStacks runs AsyncPropagator from seed and returns the resulting
// AsyncMap, per spec.md §4.5.
func (e *Engine) GetAsyncStacks(seed ast.NodeID) (*report.AsyncMap, error) {
	if e.idx == nil {
		return nil, fmt.Errorf("getAsyncStacks: engine has not parsed: %w", enginerr.ErrInvalidInput)
	}
	if seed == ast.NoNode {
		return nil, fmt.Errorf("getAsyncStacks: seed not found: %w", enginerr.ErrNotFound)
	}
	return propagate.Propagate(e.idx, e.scopes, e.tree, e.ignore, seed)
}

// Report wraps the current parse state and an AsyncMap into a report.Model,
// a convenience beyond the pinned interface for collaborators that want
// nameOf/serialize/isAsyncSyntaxError without re-deriving the Index
// themselves.
func (e *Engine) Report(seed ast.NodeID, m *report.AsyncMap) *report.Model {
	return report.New(e.tree, e.idx, seed, m)
}

// Tree exposes the parsed AST for collaborators that need direct node
// inspection.
func (e *Engine) Tree() *ast.Tree { return e.tree }
