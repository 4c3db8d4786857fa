package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/avi3tal/flowgraph/pkg/agents"
	"github.com/avi3tal/flowgraph/pkg/checkpoints"
	"github.com/avi3tal/flowgraph/pkg/executor"
	"github.com/avi3tal/flowgraph/pkg/graph"
	"github.com/avi3tal/flowgraph/pkg/observability"
	"github.com/avi3tal/flowgraph/pkg/state"
	"github.com/avi3tal/flowgraph/pkg/types"
)

// A content pipeline: draft, polish in a loop until the quality bar is
// met, then branch on length for the final touch.
func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	draft := agents.Func("draft", func(_ context.Context, _ graph.NodeContext) (types.NodeResult, error) {
		return types.NodeResult{
			Output: "first draft",
			Update: &state.Update{Values: map[string]any{"words": 120, "quality": 1}},
		}, nil
	})

	polish := agents.Func("polish", func(_ context.Context, nc graph.NodeContext) (types.NodeResult, error) {
		quality := nc.State.GetInt("quality") + 1
		return types.NodeResult{
			Output: fmt.Sprintf("polished to quality %d", quality),
			Update: &state.Update{Values: map[string]any{"quality": quality}},
		}, nil
	})

	trim := agents.Static("trim", "trimmed the long draft")
	expand := agents.Static("expand", "expanded the short draft")

	g, err := graph.NewBuilder("content-pipeline").
		Start(draft).
		Loop(polish, graph.LoopConfig{
			Until:         func(s *state.ExecutionState) bool { return s.GetInt("quality") >= 3 },
			MaxIterations: 10,
		}).
		If(func(s *state.ExecutionState) bool { return s.GetInt("words") > 100 }).
		Then(trim).
		Else().
		Then(expand).
		EndIf().
		End().
		Compile(
			graph.WithCheckpointer(checkpoints.NewMemoryStore()),
			graph.WithAutoCheckpoint(),
			graph.WithObserver(observability.NewLogObserver(logger)),
			graph.WithLogger(logger),
		)
	if err != nil {
		panic(err)
	}

	g.PrintGraph()

	fmt.Println("streaming steps:")
	var final types.StepResult
	for sr := range executor.New(g).Stream(context.Background(), state.New()) {
		fmt.Printf("  step %d: %-18s %s\n", sr.Step, sr.NodeID, sr.Status)
		final = sr
	}

	fmt.Printf("\nfinished with status %q, quality %d\n",
		final.Status, final.State.GetInt("quality"))
	for _, nodeID := range []string{"draft", "polish", "trim", "expand"} {
		if out, ok := final.State.Output(nodeID); ok {
			fmt.Printf("  %s: %v\n", nodeID, out)
		}
	}
}
