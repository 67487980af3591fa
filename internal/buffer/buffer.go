// Package buffer concatenates one or more named source fragments into a
// single parse unit and records a line map so every AST node can later be
// traced back to its originating file and line (SPEC_FULL.md §4.1).
package buffer

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/asyncify/asyncify/internal/engine/enginerr"
)

// Fragment is one appended piece of source, as described in SPEC_FULL.md
// §3's SourceFragment entity.
type Fragment struct {
	Path      string
	FirstLine int
	Text      string
}

// lineMapEntry covers a contiguous run of buffer lines originating from one
// fragment. Entries never overlap and never leave a gap.
type lineMapEntry struct {
	startBufferLine       int // inclusive, 1-based
	endBufferLineExclusive int
	path                  string
	firstLineInFile       int
}

// Buffer is the SourceBuffer of SPEC_FULL.md §4.1: an append-only
// concatenation of fragments plus the derived line map.
type Buffer struct {
	root      string
	fragments []Fragment
	lines     []string // 1-indexed via lines[i-1]
	entries   []lineMapEntry
	seenFiles map[string]bool // appendFile idempotence, keyed by resolved path
}

// New returns an empty Buffer rooted at root for resolving appendFile calls.
func New(root string) *Buffer {
	return &Buffer{root: root, seenFiles: make(map[string]bool)}
}

// AppendSource appends text (split on "\n") as a new fragment starting at
// firstLine within path. Fails with ErrInvalidInput if firstLine < 1 or text
// is empty.
func (b *Buffer) AppendSource(path string, firstLine int, text string) error {
	if firstLine < 1 {
		return fmt.Errorf("appendSource %s: firstLine must be >= 1, got %d: %w", path, firstLine, enginerr.ErrInvalidInput)
	}
	if text == "" {
		return fmt.Errorf("appendSource %s: empty text: %w", path, enginerr.ErrInvalidInput)
	}

	b.fragments = append(b.fragments, Fragment{Path: path, FirstLine: firstLine, Text: text})

	split := strings.Split(text, "\n")
	start := len(b.lines) + 1
	b.lines = append(b.lines, split...)
	end := len(b.lines) + 1

	b.entries = append(b.entries, lineMapEntry{
		startBufferLine:        start,
		endBufferLineExclusive: end,
		path:                   path,
		firstLineInFile:        firstLine,
	})
	return nil
}

// AppendFile reads the file at relativePath under root and appends it with
// firstLine = 1. A second call for the same resolved path is a no-op.
// Fails with ErrPathEscape if the resolved path is outside root, ErrIO on
// read failure.
func (b *Buffer) AppendFile(relativePath string) error {
	resolved := filepath.Join(b.root, relativePath)
	rootAbs, err := filepath.Abs(b.root)
	if err != nil {
		return fmt.Errorf("appendFile %s: resolving root: %w", relativePath, err)
	}
	resolvedAbs, err := filepath.Abs(resolved)
	if err != nil {
		return fmt.Errorf("appendFile %s: resolving path: %w", relativePath, err)
	}
	if !strings.HasPrefix(resolvedAbs, rootAbs+string(filepath.Separator)) && resolvedAbs != rootAbs {
		return fmt.Errorf("appendFile %s escapes root %s: %w", relativePath, b.root, enginerr.ErrPathEscape)
	}

	if b.seenFiles[resolvedAbs] {
		return nil
	}

	data, err := os.ReadFile(resolvedAbs)
	if err != nil {
		return fmt.Errorf("appendFile %s: %w: %v", relativePath, enginerr.ErrIO, err)
	}

	b.seenFiles[resolvedAbs] = true
	return b.AppendSource(relativePath, 1, string(data))
}

// LineCount returns the number of lines currently in the concatenated
// buffer.
func (b *Buffer) LineCount() int { return len(b.lines) }

// Line returns the 1-indexed buffer line text.
func (b *Buffer) Line(bufferLine int) string { return b.lines[bufferLine-1] }

// LocateOrigin returns the (path, line) pair covering bufferLine, found by
// binary search on the line map (SPEC_FULL.md §4.1).
func (b *Buffer) LocateOrigin(bufferLine int) (path string, line int, ok bool) {
	i := sort.Search(len(b.entries), func(i int) bool {
		return b.entries[i].endBufferLineExclusive > bufferLine
	})
	if i >= len(b.entries) || bufferLine < b.entries[i].startBufferLine {
		return "", 0, false
	}
	e := b.entries[i]
	offset := bufferLine - e.startBufferLine
	return e.path, e.firstLineInFile + offset, true
}

// SerializeMapping emits a human-readable dump of every buffer line
// annotated with its origin "path:originalLine", used by tests and
// debugging.
func (b *Buffer) SerializeMapping() string {
	var sb strings.Builder
	for i := 1; i <= len(b.lines); i++ {
		path, line, _ := b.LocateOrigin(i)
		fmt.Fprintf(&sb, "%d: %s:%d: %s\n", i, path, line, b.lines[i-1])
	}
	return sb.String()
}

// Text returns the full concatenated buffer contents, the parse unit fed to
// the Parser.
func (b *Buffer) Text() string { return strings.Join(b.lines, "\n") }
