package reportwriter

import (
	"fmt"
	"strings"
)

// PlainTextWriter renders a report.Model as the flat
// "path:line <Kind>[index]" listing used by fixtures'
// expected-callstack.txt files.
type PlainTextWriter struct{}

// Name returns the serializer.type value this writer answers to.
func (PlainTextWriter) Name() string { return "plain" }

// Write renders m as plain text.
func (PlainTextWriter) Write(m ModelView) (string, error) {
	entries, err := m.Entries()
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, e := range entries {
		for _, edge := range e.Edges {
			fmt.Fprintf(&sb, "%s\n", edge.AwaitNode)
		}
		if e.IsSyntaxErr {
			fmt.Fprintf(&sb, "SyntaxError: async %s\n", e.Node)
		}
	}
	return sb.String(), nil
}
