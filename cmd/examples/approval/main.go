package main

import (
	"context"
	"fmt"
	"os"

	"github.com/avi3tal/flowgraph/pkg/agents"
	"github.com/avi3tal/flowgraph/pkg/checkpoints"
	"github.com/avi3tal/flowgraph/pkg/executor"
	"github.com/avi3tal/flowgraph/pkg/graph"
	"github.com/avi3tal/flowgraph/pkg/state"
	"github.com/avi3tal/flowgraph/pkg/types"
)

// A human-in-the-loop release flow: prepare a release, pause for
// approval, then either publish or archive based on the answer. The
// pause survives process restarts through the file checkpoint store.
func main() {
	dir, err := os.MkdirTemp("", "flowgraph-approval-*")
	if err != nil {
		panic(err)
	}
	defer os.RemoveAll(dir)

	store, err := checkpoints.NewFileStore(dir)
	if err != nil {
		panic(err)
	}

	prepare := agents.Static("prepare", "release candidate v1.4.0 built")
	publish := agents.Static("publish", "released to production")
	archive := agents.Static("archive", "candidate archived")

	g, err := graph.NewBuilder("release-approval").
		Start(prepare).
		Wait("ship v1.4.0 to production?").
		If(func(s *state.ExecutionState) bool { return s.GetBool("approved") }).
		Then(publish).
		Else().
		Then(archive).
		EndIf().
		End().
		Compile(graph.WithCheckpointer(store))
	if err != nil {
		panic(err)
	}

	exec := executor.New(g)

	paused, err := exec.Run(context.Background(), state.New())
	if err != nil {
		panic(err)
	}
	sig, _ := paused.Result.FindSignal(types.SignalPause)
	fmt.Printf("paused at %s: %s\n", paused.NodeID, sig.Prompt)

	// A real deployment would reload the checkpoint in a new process.
	cp, err := store.Load(context.Background(), paused.State.ExecutionID)
	if err != nil {
		panic(err)
	}
	fmt.Printf("checkpoint found for execution %s at node %s\n", cp.ExecutionID, cp.NodeID)

	cp.State.Set("approved", true)
	final, err := exec.Run(context.Background(), cp.State, executor.WithResumeFrom(cp.NodeID))
	if err != nil {
		panic(err)
	}

	fmt.Printf("resumed and finished with status %q\n", final.Status)
	if out, ok := final.State.Output("publish"); ok {
		fmt.Printf("publish: %v\n", out)
	}
}
