package graph

import (
	"context"

	"github.com/avi3tal/flowgraph/pkg/state"
	"github.com/avi3tal/flowgraph/pkg/types"
)

// NodeContext is passed to a node's Execute function.
type NodeContext struct {
	State  *state.ExecutionState
	NodeID string
	Config types.Config
}

// ExecuteFunc performs one unit of work. Implementations should fail only
// on conditions meant to trigger retry or failure, not for expected
// business outcomes.
type ExecuteFunc func(ctx context.Context, nc NodeContext) (types.NodeResult, error)

// NodeDefinition describes a single unit of work in a workflow graph.
// Definitions are created once at build time and are immutable afterwards;
// edges reference them by ID.
type NodeDefinition struct {
	ID       string
	Type     types.NodeType
	Execute  ExecuteFunc
	Retry    *types.RetryConfig
	Metadata map[string]any

	// Parallel carries the fan-out payload for parallel-typed nodes.
	Parallel *ParallelSpec
}

// ParallelSpec is the per-variant payload of a parallel node.
type ParallelSpec struct {
	Branches []string
	Strategy types.MergeStrategy
}

// NewNode creates a node definition of the given type.
func NewNode(id string, nodeType types.NodeType, fn ExecuteFunc) *NodeDefinition {
	return &NodeDefinition{
		ID:      id,
		Type:    nodeType,
		Execute: fn,
	}
}

// WithRetry attaches a retry policy to the node.
func (n *NodeDefinition) WithRetry(rc *types.RetryConfig) *NodeDefinition {
	n.Retry = rc
	return n
}

// WithMetadata attaches display metadata to the node.
func (n *NodeDefinition) WithMetadata(meta map[string]any) *NodeDefinition {
	n.Metadata = meta
	return n
}

// passthrough is the execute function of synthesized sentinel nodes
// (decisions, merges, loop starts). It changes nothing and routes by edges.
func passthrough(_ context.Context, _ NodeContext) (types.NodeResult, error) {
	return types.NodeResult{}, nil
}
