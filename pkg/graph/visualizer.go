package graph

import (
	"fmt"
	"sort"
	"strings"
)

// Describe renders the graph structure as indented text, for debugging
// and example output.
func (g *CompiledGraph) Describe() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Graph %q\n", g.name)
	fmt.Fprintf(&b, "Entry Point: %s\n\n", g.startID)

	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	b.WriteString("Nodes:\n")
	for _, id := range ids {
		marker := "-"
		if id == g.startID {
			marker = "*"
		}
		suffix := ""
		if g.terminals[id] {
			suffix = " (terminal)"
		}
		fmt.Fprintf(&b, "  %s %s (%s)%s\n", marker, id, g.nodes[id].Type, suffix)
	}
	if g.handlerID != "" {
		fmt.Fprintf(&b, "  ! %s (error handler)\n", g.handlerID)
	}

	b.WriteString("\nEdges:\n")
	for _, e := range g.edges {
		switch {
		case e.Condition != nil:
			fmt.Fprintf(&b, "  %s --[%s]--> %s\n", e.From, labelOr(e.Label, "condition"), e.To)
		case e.Label != "":
			fmt.Fprintf(&b, "  %s ==%s==> %s\n", e.From, e.Label, e.To)
		default:
			fmt.Fprintf(&b, "  %s --> %s\n", e.From, e.To)
		}
	}
	return b.String()
}

// PrintGraph writes the description to stdout.
func (g *CompiledGraph) PrintGraph() {
	fmt.Print(g.Describe())
}

func labelOr(label, fallback string) string {
	if label != "" {
		return label
	}
	return fallback
}
