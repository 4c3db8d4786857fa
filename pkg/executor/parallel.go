package executor

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/avi3tal/flowgraph/pkg/graph"
	"github.com/avi3tal/flowgraph/pkg/state"
	"github.com/avi3tal/flowgraph/pkg/types"
)

type branchOutcome struct {
	id  string
	st  *state.ExecutionState
	err error
}

// executeParallel fans out into the node's branches, each walking on a
// deep copy of the state, and joins them per the node's merge strategy.
// Branch dispatch is bounded by the configured concurrency limit; branch
// step results stream through the shared channel, unordered across
// branches. The merged result is applied to st in place.
func (r *run) executeParallel(ctx context.Context, node *graph.NodeDefinition, st *state.ExecutionState) (types.NodeResult, error) {
	spec := node.Parallel
	if spec == nil || len(spec.Branches) == 0 {
		return types.NodeResult{}, errors.Errorf("parallel node %q has no branches", node.ID)
	}

	// No branch goroutine may outlive this call: once it returns, the
	// stream channel can close. Cancel fires before the wait so losing
	// branches stop walking instead of running to completion.
	branchCtx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	defer wg.Wait()
	defer cancel()

	sem := make(chan struct{}, r.config.Concurrency())
	outcomes := make(chan branchOutcome, len(spec.Branches))
	for _, branchID := range spec.Branches {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			clone := st.Clone()
			err := r.walkBranch(branchCtx, id, clone)
			outcomes <- branchOutcome{id: id, st: clone, err: err}
		}(branchID)
	}

	switch spec.Strategy {
	case types.MergeRace:
		return r.joinRace(ctx, st, spec, outcomes)
	case types.MergeAny:
		return r.joinAny(ctx, st, spec, outcomes)
	default:
		return r.joinAll(ctx, st, spec, outcomes)
	}
}

// joinAll waits for every branch. Any branch failure fails the join;
// otherwise branch states merge in lexicographic branch-ID order so the
// result is deterministic regardless of completion order.
func (r *run) joinAll(ctx context.Context, st *state.ExecutionState, spec *graph.ParallelSpec, outcomes <-chan branchOutcome) (types.NodeResult, error) {
	collected := make([]branchOutcome, 0, len(spec.Branches))
	for range spec.Branches {
		select {
		case out := <-outcomes:
			collected = append(collected, out)
		case <-ctx.Done():
			return types.NodeResult{}, ctx.Err()
		}
	}
	sort.Slice(collected, func(i, j int) bool { return collected[i].id < collected[j].id })

	for _, out := range collected {
		if out.err != nil {
			return types.NodeResult{}, errors.Wrapf(out.err, "branch %q", out.id)
		}
	}
	merged := make([]string, 0, len(collected))
	for _, out := range collected {
		mergeBranch(st, out.st)
		merged = append(merged, out.id)
	}
	return parallelResult(spec.Strategy, merged), nil
}

// joinRace settles with the first branch to finish, success or failure,
// and cancels the rest.
func (r *run) joinRace(ctx context.Context, st *state.ExecutionState, spec *graph.ParallelSpec, outcomes <-chan branchOutcome) (types.NodeResult, error) {
	select {
	case out := <-outcomes:
		if out.err != nil {
			return types.NodeResult{}, errors.Wrapf(out.err, "branch %q", out.id)
		}
		mergeBranch(st, out.st)
		return parallelResult(spec.Strategy, []string{out.id}), nil
	case <-ctx.Done():
		return types.NodeResult{}, ctx.Err()
	}
}

// joinAny settles with the first successful branch, cancelling the rest,
// and fails only when every branch fails.
func (r *run) joinAny(ctx context.Context, st *state.ExecutionState, spec *graph.ParallelSpec, outcomes <-chan branchOutcome) (types.NodeResult, error) {
	var lastErr error
	for range spec.Branches {
		select {
		case out := <-outcomes:
			if out.err != nil {
				lastErr = errors.Wrapf(out.err, "branch %q", out.id)
				continue
			}
			mergeBranch(st, out.st)
			return parallelResult(spec.Strategy, []string{out.id}), nil
		case <-ctx.Done():
			return types.NodeResult{}, ctx.Err()
		}
	}
	return types.NodeResult{}, errors.Wrap(ErrAllBranchesFailed, lastErr.Error())
}

// mergeBranch folds a branch's state back into the base state: values
// shallow-merge, outputs follow the per-node deep-merge rule.
func mergeBranch(base, branch *state.ExecutionState) {
	base.Apply(&state.Update{Values: branch.Values, Outputs: branch.Outputs})
}

func parallelResult(strategy types.MergeStrategy, merged []string) types.NodeResult {
	if strategy == "" {
		strategy = types.MergeAll
	}
	return types.NodeResult{Output: map[string]any{
		"strategy": string(strategy),
		"merged":   merged,
	}}
}

// walkBranch executes one parallel branch sequentially on its own state
// copy until the branch has no continuation, pauses, or fails. Branch
// steps draw from the run's shared step budget.
func (r *run) walkBranch(ctx context.Context, startID string, st *state.ExecutionState) error {
	queue := []string{startID}
	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}

		nodeID := queue[0]
		queue = queue[1:]

		step := int(r.steps.Add(1))
		if step > r.config.StepBudget() {
			return errors.Wrapf(ErrMaxStepsExceeded, "step %d over budget %d", step, r.config.StepBudget())
		}

		node, ok := r.graph.Node(nodeID)
		if !ok {
			return errors.Wrap(ErrUnknownNode, nodeID)
		}

		r.notifyStart(st.ExecutionID, nodeID, step)
		started := time.Now()

		var result types.NodeResult
		var attempts int
		var err error
		if node.Type == types.NodeTypeParallel {
			result, err = r.executeParallel(ctx, node, st)
			attempts = 1
		} else {
			result, attempts, err = r.invoke(ctx, node, st)
		}

		sr := types.StepResult{
			NodeID:   nodeID,
			Status:   types.StatusRunning,
			State:    st,
			Result:   &result,
			Attempts: attempts,
			Step:     step,
			Duration: time.Since(started),
		}

		if err != nil {
			// The branch fails; whether the run fails is the join's call.
			sr.Err = &NodeError{NodeID: nodeID, Attempts: attempts, Err: err}
			r.notifyEnd(st.ExecutionID, sr)
			r.emit(ctx, sr)
			return sr.Err
		}

		st.Apply(result.Update)
		if result.Output != nil {
			st.RecordOutput(nodeID, result.Output)
		}

		if sig, ok := result.FindSignal(types.SignalPause); ok {
			// The branch stops at the wait node; the pause is surfaced
			// through this step result and the join proceeds.
			sr.Status = types.StatusPaused
			r.log.Warn("pause inside parallel branch",
				"execution_id", st.ExecutionID,
				"node_id", nodeID,
				"prompt", sig.Prompt)
			r.notifyEnd(st.ExecutionID, sr)
			r.emit(ctx, sr)
			return nil
		}

		if len(result.Next) > 0 {
			queue = append(queue, result.Next...)
		} else if next, ok := r.nextFrom(nodeID, st); ok {
			queue = append(queue, next)
		}

		r.notifyEnd(st.ExecutionID, sr)
		if !r.emit(ctx, sr) {
			return ctx.Err()
		}
	}
	return nil
}
