package reportwriter

import (
	"fmt"
	"strings"
)

// MarkdownWriter renders a report.Model as a Markdown document, one
// section per non-root AsyncMap entry. A newly-async function with no await
// candidates of its own has no entry, and so no section.
type MarkdownWriter struct{}

// Name returns the serializer.type value this writer answers to.
func (MarkdownWriter) Name() string { return "markdown" }

// Write renders m as Markdown.
func (MarkdownWriter) Write(m ModelView) (string, error) {
	seed, err := m.Seed()
	if err != nil {
		return "", err
	}
	entries, err := m.Entries()
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "# Async propagation from `%s`\n\n", seed)

	for _, e := range entries {
		fmt.Fprintf(&sb, "## `%s` (%s)\n\n", e.Name, e.Node)
		if e.IsSyntaxErr {
			fmt.Fprintf(&sb, "> SyntaxError: async `%s` cannot legally be marked (accessor or constructor)\n\n", e.Name)
		}
		for _, edge := range e.Edges {
			if edge.AsyncNode == "" {
				fmt.Fprintf(&sb, "- await at `%s`\n", edge.AwaitNode)
			} else {
				fmt.Fprintf(&sb, "- await at `%s` → marks `%s` async\n", edge.AwaitNode, edge.AsyncNode)
			}
		}
		sb.WriteString("\n")
	}

	return sb.String(), nil
}
