package graph

import (
	"log/slog"
	"sort"

	"github.com/avi3tal/flowgraph/pkg/types"
)

// CompiledGraph is the frozen output of a Builder: node lookup table,
// ordered edge list, start node, terminal set and engine configuration.
// It is read-only after Compile and safe to share across concurrent
// executions.
type CompiledGraph struct {
	name      string
	nodes     map[string]*NodeDefinition
	edges     []Edge
	startID   string
	terminals map[string]bool
	handlerID string
	config    types.Config
}

// Name returns the graph's display name.
func (g *CompiledGraph) Name() string {
	return g.name
}

// Node looks up a node definition by ID.
func (g *CompiledGraph) Node(id string) (*NodeDefinition, bool) {
	node, ok := g.nodes[id]
	return node, ok
}

// NodeCount returns the number of nodes in the graph.
func (g *CompiledGraph) NodeCount() int {
	return len(g.nodes)
}

// Edges returns a copy of the ordered edge list.
func (g *CompiledGraph) Edges() []Edge {
	return append([]Edge(nil), g.edges...)
}

// EdgesFrom returns the edges leaving id in declaration order.
func (g *CompiledGraph) EdgesFrom(id string) []Edge {
	var out []Edge
	for _, e := range g.edges {
		if e.From == id {
			out = append(out, e)
		}
	}
	return out
}

// StartNode returns the start node ID.
func (g *CompiledGraph) StartNode() string {
	return g.startID
}

// IsTerminal reports whether id is a terminal node.
func (g *CompiledGraph) IsTerminal(id string) bool {
	return g.terminals[id]
}

// EndNodes returns the terminal node IDs in sorted order.
func (g *CompiledGraph) EndNodes() []string {
	out := make([]string, 0, len(g.terminals))
	for id := range g.terminals {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// ErrorHandler returns the designated error handler node ID, or "".
func (g *CompiledGraph) ErrorHandler() string {
	return g.handlerID
}

// Config returns a copy of the graph's engine configuration.
func (g *CompiledGraph) Config() types.Config {
	return g.config.Clone()
}

// CompileOption customizes the engine configuration merged into a
// compiled graph.
type CompileOption func(*types.Config)

// WithMaxSteps sets the per-execution step budget.
func WithMaxSteps(n int) CompileOption {
	return func(c *types.Config) {
		c.MaxSteps = n
	}
}

// WithMaxConcurrency limits concurrently running parallel branches.
func WithMaxConcurrency(n int) CompileOption {
	return func(c *types.Config) {
		c.MaxConcurrency = n
	}
}

// WithCheckpointer attaches a checkpoint store to the graph.
func WithCheckpointer(cp types.Checkpointer) CompileOption {
	return func(c *types.Config) {
		c.Checkpointer = cp
	}
}

// WithAutoCheckpoint saves a checkpoint after every completed step.
func WithAutoCheckpoint() CompileOption {
	return func(c *types.Config) {
		c.AutoCheckpoint = true
	}
}

// WithObserver registers an execution observer.
func WithObserver(o types.Observer) CompileOption {
	return func(c *types.Config) {
		c.Observers = append(c.Observers, o)
	}
}

// WithLogger sets the structured logger used during execution.
func WithLogger(l *slog.Logger) CompileOption {
	return func(c *types.Config) {
		c.Logger = l
	}
}

// WithGraphMetadata attaches caller metadata to the compiled graph.
func WithGraphMetadata(meta map[string]any) CompileOption {
	return func(c *types.Config) {
		c.Metadata = meta
	}
}
