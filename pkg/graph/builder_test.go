package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avi3tal/flowgraph/pkg/state"
	"github.com/avi3tal/flowgraph/pkg/types"
)

func noop(id string) *NodeDefinition {
	return NewNode(id, types.NodeTypeTool, func(_ context.Context, _ NodeContext) (types.NodeResult, error) {
		return types.NodeResult{}, nil
	})
}

func TestBuilderLinearChain(t *testing.T) {
	t.Parallel()

	b := NewBuilder("linear").
		Start(noop("A")).
		Then(noop("B")).
		Then(noop("C")).
		End()
	require.NoError(t, b.Err())

	g, err := b.Compile()
	require.NoError(t, err)

	assert.Equal(t, "A", g.StartNode())
	assert.Equal(t, []string{"C"}, g.EndNodes())

	edges := g.Edges()
	require.Len(t, edges, 2)
	assert.Equal(t, "A", edges[0].From)
	assert.Equal(t, "B", edges[0].To)
	assert.Equal(t, "B", edges[1].From)
	assert.Equal(t, "C", edges[1].To)
}

func TestBuilderThenImplicitStart(t *testing.T) {
	t.Parallel()

	g, err := NewBuilder("implicit").Then(noop("only")).Compile()
	require.NoError(t, err)
	assert.Equal(t, "only", g.StartNode())
	assert.True(t, g.IsTerminal("only"))
}

func TestBuilderDuplicateNode(t *testing.T) {
	t.Parallel()

	b := NewBuilder("dup").Start(noop("A")).Then(noop("A"))
	require.Error(t, b.Err())
	assert.ErrorIs(t, b.Err(), ErrDuplicateNode)

	_, err := b.Compile()
	assert.ErrorIs(t, err, ErrDuplicateNode)
}

func TestBuilderStartTwice(t *testing.T) {
	t.Parallel()

	b := NewBuilder("twice").Start(noop("A")).Start(noop("B"))
	assert.ErrorIs(t, b.Err(), ErrStartAlreadySet)
}

func TestBuilderCompileWithoutStart(t *testing.T) {
	t.Parallel()

	_, err := NewBuilder("empty").Compile()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoStartNode)
}

func TestBuilderStickyError(t *testing.T) {
	t.Parallel()

	b := NewBuilder("sticky").Start(noop("A")).Then(noop("A"))
	first := b.Err()
	require.Error(t, first)

	// Later calls are no-ops and the first error survives.
	b.Then(noop("B")).If(func(*state.ExecutionState) bool { return true }).End()
	assert.Same(t, first.(*BuildError), b.Err().(*BuildError))
}

func TestBuilderIfElseLowering(t *testing.T) {
	t.Parallel()

	pred := func(s *state.ExecutionState) bool { return s.GetBool("flag") }
	b := NewBuilder("cond").
		Start(noop("A")).
		If(pred).
		Then(noop("X")).
		Else().
		Then(noop("Y")).
		EndIf().
		Then(noop("Z")).
		End()
	require.NoError(t, b.Err())

	g, err := b.Compile()
	require.NoError(t, err)

	decision, ok := g.Node("decision_1")
	require.True(t, ok)
	assert.Equal(t, types.NodeTypeDecision, decision.Type)

	out := g.EdgesFrom("decision_1")
	require.Len(t, out, 2)
	assert.Equal(t, LabelThen, out[0].Label)
	assert.Equal(t, "X", out[0].To)
	require.NotNil(t, out[0].Condition)
	assert.Equal(t, LabelElse, out[1].Label)
	assert.Equal(t, "Y", out[1].To)
	assert.Nil(t, out[1].Condition)

	// Both branch tails converge on the merge node.
	merge := g.EdgesFrom("X")
	require.Len(t, merge, 1)
	assert.Equal(t, "merge_2", merge[0].To)
	merge = g.EdgesFrom("Y")
	require.Len(t, merge, 1)
	assert.Equal(t, "merge_2", merge[0].To)

	after := g.EdgesFrom("merge_2")
	require.Len(t, after, 1)
	assert.Equal(t, "Z", after[0].To)
}

func TestBuilderIfWithoutElse(t *testing.T) {
	t.Parallel()

	pred := func(s *state.ExecutionState) bool { return s.GetBool("flag") }
	g, err := NewBuilder("cond").
		Start(noop("A")).
		If(pred).
		Then(noop("X")).
		EndIf().
		Then(noop("Z")).
		End().
		Compile()
	require.NoError(t, err)

	out := g.EdgesFrom("decision_1")
	require.Len(t, out, 2)
	assert.Equal(t, LabelThen, out[0].Label)
	assert.Equal(t, "X", out[0].To)
	// Skipping the branch routes straight to the merge node.
	assert.Equal(t, LabelElse, out[1].Label)
	assert.Equal(t, "merge_2", out[1].To)
}

func TestBuilderEmptyThenBranchKeepsGuardFirst(t *testing.T) {
	t.Parallel()

	pred := func(s *state.ExecutionState) bool { return s.GetBool("flag") }
	g, err := NewBuilder("cond").
		Start(noop("A")).
		If(pred).
		Else().
		Then(noop("Y")).
		EndIf().
		End().
		Compile()
	require.NoError(t, err)

	out := g.EdgesFrom("decision_1")
	require.Len(t, out, 2)
	assert.Equal(t, LabelThen, out[0].Label)
	require.NotNil(t, out[0].Condition)
	assert.Equal(t, LabelElse, out[1].Label)
	assert.Equal(t, "Y", out[1].To)
}

func TestBuilderElseWithoutIf(t *testing.T) {
	t.Parallel()

	b := NewBuilder("bad").Start(noop("A")).Else()
	assert.ErrorIs(t, b.Err(), ErrNoOpenScope)
}

func TestBuilderDoubleElse(t *testing.T) {
	t.Parallel()

	pred := func(*state.ExecutionState) bool { return true }
	b := NewBuilder("bad").Start(noop("A")).If(pred).Else().Else()
	assert.ErrorIs(t, b.Err(), ErrElseAlreadyOpen)
}

func TestBuilderUnclosedScope(t *testing.T) {
	t.Parallel()

	pred := func(*state.ExecutionState) bool { return true }
	b := NewBuilder("open").Start(noop("A")).If(pred).Then(noop("X"))
	require.NoError(t, b.Err())

	_, err := b.Compile()
	assert.ErrorIs(t, err, ErrUnclosedScope)
}

func TestBuilderLoopLowering(t *testing.T) {
	t.Parallel()

	until := func(s *state.ExecutionState) bool { return s.GetBool("done") }
	g, err := NewBuilder("loop").
		Start(noop("A")).
		Loop(noop("body"), LoopConfig{Until: until, MaxIterations: 3}).
		Then(noop("Z")).
		End().
		Compile()
	require.NoError(t, err)

	for _, id := range []string{"loop_start_body", "body", "loop_check_body"} {
		_, ok := g.Node(id)
		require.True(t, ok, id)
	}

	out := g.EdgesFrom("loop_check_body")
	require.Len(t, out, 2)
	assert.Equal(t, LabelLoopContinue, out[0].Label)
	assert.Equal(t, "loop_start_body", out[0].To)
	assert.Equal(t, "Z", out[1].To)

	// Continue edge reads the check node's recorded verdict.
	s := state.New()
	s.Set("loop_check_body.done", false)
	assert.True(t, out[0].Matches(s))
	s.Set("loop_check_body.done", true)
	assert.False(t, out[0].Matches(s))

	// The check node enforces the predicate and the iteration cap, and
	// clears its counter when the loop exits.
	check, ok := g.Node("loop_check_body")
	require.True(t, ok)

	s = state.New()
	res, err := check.Execute(context.Background(), NodeContext{State: s, NodeID: check.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Update.Values["loop_check_body.iterations"])
	assert.Equal(t, false, res.Update.Values["loop_check_body.done"])

	s.Set("loop_check_body.iterations", 2)
	res, err = check.Execute(context.Background(), NodeContext{State: s, NodeID: check.ID})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Update.Values["loop_check_body.iterations"])
	assert.Equal(t, true, res.Update.Values["loop_check_body.done"])

	s = state.New()
	s.Set("done", true)
	res, err = check.Execute(context.Background(), NodeContext{State: s, NodeID: check.ID})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Update.Values["loop_check_body.iterations"])
	assert.Equal(t, true, res.Update.Values["loop_check_body.done"])
}

func TestBuilderLoopRequiresPredicate(t *testing.T) {
	t.Parallel()

	b := NewBuilder("loop").Start(noop("A")).Loop(noop("body"), LoopConfig{})
	assert.ErrorIs(t, b.Err(), ErrNilPredicate)
}

func TestBuilderParallelLowering(t *testing.T) {
	t.Parallel()

	g, err := NewBuilder("fan").
		Parallel(ParallelConfig{
			Branches: []*NodeDefinition{noop("left"), noop("right")},
			Strategy: types.MergeAll,
		}).
		Then(noop("join")).
		End().
		Compile()
	require.NoError(t, err)

	node, ok := g.Node("parallel_1")
	require.True(t, ok)
	require.NotNil(t, node.Parallel)
	assert.Equal(t, []string{"left", "right"}, node.Parallel.Branches)
	assert.Equal(t, types.MergeAll, node.Parallel.Strategy)
	assert.Equal(t, "parallel_1", g.StartNode())

	out := g.EdgesFrom("parallel_1")
	require.Len(t, out, 3)
	assert.Equal(t, LabelBranch, out[0].Label)
	assert.Equal(t, LabelBranch, out[1].Label)
	assert.Empty(t, out[2].Label)
	assert.Equal(t, "join", out[2].To)
}

func TestBuilderParallelRequiresBranches(t *testing.T) {
	t.Parallel()

	b := NewBuilder("fan").Parallel(ParallelConfig{})
	assert.ErrorIs(t, b.Err(), ErrNoBranches)
}

func TestBuilderWait(t *testing.T) {
	t.Parallel()

	g, err := NewBuilder("approval").
		Start(noop("A")).
		Wait("approve?").
		Then(noop("B")).
		End().
		Compile()
	require.NoError(t, err)

	node, ok := g.Node("wait_1")
	require.True(t, ok)
	assert.Equal(t, types.NodeTypeWait, node.Type)

	res, err := node.Execute(context.Background(), NodeContext{State: state.New()})
	require.NoError(t, err)
	sig, ok := res.FindSignal(types.SignalPause)
	require.True(t, ok)
	assert.Equal(t, "approve?", sig.Prompt)
}

func TestBuilderCatch(t *testing.T) {
	t.Parallel()

	g, err := NewBuilder("guarded").
		Start(noop("A")).
		Catch(noop("handler")).
		Then(noop("B")).
		End().
		Compile()
	require.NoError(t, err)

	assert.Equal(t, "handler", g.ErrorHandler())
	// The handler is reachable only through the failure path.
	assert.Empty(t, g.EdgesFrom("handler"))
	var incoming []Edge
	for _, e := range g.Edges() {
		if e.To == "handler" {
			incoming = append(incoming, e)
		}
	}
	assert.Empty(t, incoming)
	// The cursor stays put, so Then still chains from A.
	out := g.EdgesFrom("A")
	require.Len(t, out, 1)
	assert.Equal(t, "B", out[0].To)
}

func TestBuilderEndMarksMultipleTerminals(t *testing.T) {
	t.Parallel()

	pred := func(s *state.ExecutionState) bool { return s.GetBool("flag") }
	b := NewBuilder("multi").Start(noop("A")).If(pred).Then(noop("X")).End().Else().Then(noop("Y")).End().EndIf()
	require.NoError(t, b.Err())

	g, err := b.Compile()
	require.NoError(t, err)
	assert.Equal(t, []string{"X", "Y"}, g.EndNodes())
}

func TestBuilderCompileTwiceStructurallyEqual(t *testing.T) {
	t.Parallel()

	pred := func(s *state.ExecutionState) bool { return s.GetBool("flag") }
	b := NewBuilder("twice").
		Start(noop("A")).
		If(pred).
		Then(noop("X")).
		Else().
		Then(noop("Y")).
		EndIf().
		End()

	first, err := b.Compile()
	require.NoError(t, err)
	second, err := b.Compile()
	require.NoError(t, err)

	assert.Equal(t, first.StartNode(), second.StartNode())
	assert.Equal(t, first.EndNodes(), second.EndNodes())
	assert.Equal(t, first.NodeCount(), second.NodeCount())
	require.Equal(t, len(first.Edges()), len(second.Edges()))
	for i, e := range first.Edges() {
		assert.Equal(t, e.From, second.Edges()[i].From)
		assert.Equal(t, e.To, second.Edges()[i].To)
		assert.Equal(t, e.Label, second.Edges()[i].Label)
	}
}

func TestBuilderIntrospection(t *testing.T) {
	t.Parallel()

	b := NewBuilder("inspect").Start(noop("A")).Then(noop("B")).Then(noop("C"))
	require.NoError(t, b.Err())

	node, ok := b.GetNode("B")
	require.True(t, ok)
	assert.Equal(t, "B", node.ID)

	from := b.GetEdgesFrom("B")
	require.Len(t, from, 1)
	assert.Equal(t, "C", from[0].To)

	to := b.GetEdgesTo("B")
	require.Len(t, to, 1)
	assert.Equal(t, "A", to[0].From)
}

func TestCompileOptionsMergeIntoConfig(t *testing.T) {
	t.Parallel()

	g, err := NewBuilder("configured").
		Start(noop("A")).
		End().
		Compile(
			WithMaxSteps(5),
			WithMaxConcurrency(2),
			WithGraphMetadata(map[string]any{"owner": "platform"}),
		)
	require.NoError(t, err)

	cfg := g.Config()
	assert.Equal(t, 5, cfg.StepBudget())
	assert.Equal(t, 2, cfg.Concurrency())
	assert.Equal(t, "platform", cfg.Metadata["owner"])
}
