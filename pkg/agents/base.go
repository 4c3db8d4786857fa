// Package agents provides ready-made node definitions: inline function
// agents and LLM-backed completion agents.
package agents

import (
	"context"

	"github.com/avi3tal/flowgraph/pkg/graph"
	"github.com/avi3tal/flowgraph/pkg/types"
)

// Func wraps an inline function as an agent node.
func Func(id string, fn graph.ExecuteFunc) *graph.NodeDefinition {
	return graph.NewNode(id, types.NodeTypeAgent, fn)
}

// Tool wraps an inline function as a tool node.
func Tool(id string, fn graph.ExecuteFunc) *graph.NodeDefinition {
	return graph.NewNode(id, types.NodeTypeTool, fn)
}

// Static returns an agent that records a fixed payload and applies no
// other state change. Handy for examples and tests.
func Static(id string, payload any) *graph.NodeDefinition {
	return Func(id, func(_ context.Context, _ graph.NodeContext) (types.NodeResult, error) {
		return types.NodeResult{Output: payload}, nil
	})
}
