package main

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/avi3tal/flowgraph/pkg/agents"
	"github.com/avi3tal/flowgraph/pkg/executor"
	"github.com/avi3tal/flowgraph/pkg/graph"
	"github.com/avi3tal/flowgraph/pkg/observability"
	"github.com/avi3tal/flowgraph/pkg/state"
	"github.com/avi3tal/flowgraph/pkg/types"
)

func reviewer(id string, delay time.Duration, verdict string) *graph.NodeDefinition {
	return agents.Func(id, func(ctx context.Context, _ graph.NodeContext) (types.NodeResult, error) {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return types.NodeResult{}, ctx.Err()
		}
		return types.NodeResult{
			Output: verdict,
			Update: &state.Update{Values: map[string]any{id + "_verdict": verdict}},
		}, nil
	})
}

// Three reviewers assess a document concurrently; the summary waits for
// all of them and reads their merged verdicts.
func main() {
	registry := prometheus.NewRegistry()
	metrics := observability.NewPrometheusObserver(registry)

	summarize := agents.Func("summarize", func(_ context.Context, nc graph.NodeContext) (types.NodeResult, error) {
		summary := fmt.Sprintf("legal=%s, style=%s, facts=%s",
			nc.State.GetString("legal_verdict"),
			nc.State.GetString("style_verdict"),
			nc.State.GetString("facts_verdict"))
		return types.NodeResult{Output: summary}, nil
	})

	g, err := graph.NewBuilder("document-review").
		Parallel(graph.ParallelConfig{
			Branches: []*graph.NodeDefinition{
				reviewer("legal", 30*time.Millisecond, "approved"),
				reviewer("style", 10*time.Millisecond, "needs-work"),
				reviewer("facts", 20*time.Millisecond, "approved"),
			},
			Strategy: types.MergeAll,
		}).
		Then(summarize).
		End().
		Compile(
			graph.WithMaxConcurrency(2),
			graph.WithObserver(metrics),
		)
	if err != nil {
		panic(err)
	}

	final, err := executor.New(g).Run(context.Background(), state.New())
	if err != nil {
		panic(err)
	}

	out, _ := final.State.Output("summarize")
	fmt.Printf("review complete: %v\n", out)

	families, err := registry.Gather()
	if err != nil {
		panic(err)
	}
	fmt.Println("metrics collected:")
	for _, mf := range families {
		fmt.Printf("  %s (%d series)\n", mf.GetName(), len(mf.GetMetric()))
	}
}
