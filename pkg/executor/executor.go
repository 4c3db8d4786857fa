// Package executor drives a compiled workflow graph from its start node
// to a terminal node, pause, failure or cancellation, one node at a time
// with bounded parallel fan-out.
package executor

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/avi3tal/flowgraph/pkg/graph"
	"github.com/avi3tal/flowgraph/pkg/state"
	"github.com/avi3tal/flowgraph/pkg/types"
)

// Executor walks one CompiledGraph. The graph and configuration are
// shared read-only; each Run or Stream call owns its own step counter
// and state, so a single Executor may serve concurrent executions.
type Executor struct {
	graph  *graph.CompiledGraph
	config types.Config
}

// New binds an executor to a compiled graph.
func New(g *graph.CompiledGraph) *Executor {
	return &Executor{graph: g, config: g.Config()}
}

// Run drives the execution to completion and returns the final step
// result. The returned error is non-nil only for failed or cancelled
// runs; completed and paused runs return a nil error.
func (e *Executor) Run(ctx context.Context, initial *state.ExecutionState, opts ...Option) (types.StepResult, error) {
	var last types.StepResult
	for sr := range e.Stream(ctx, initial, opts...) {
		last = sr
	}
	switch last.Status {
	case types.StatusFailed, types.StatusCancelled:
		return last, last.Err
	default:
		return last, nil
	}
}

// Stream executes the graph cooperatively: the returned channel is
// unbuffered, so the run suspends after each node until the caller pulls
// the step result. Exactly one result is sent per executed node, in
// order; parallel branch results interleave unordered across branches.
// The channel closes after the terminal result.
func (e *Executor) Stream(ctx context.Context, initial *state.ExecutionState, opts ...Option) <-chan types.StepResult {
	ch := make(chan types.StepResult)
	r := &run{
		graph:  e.graph,
		config: e.config,
		log:    e.config.Log(),
		ch:     ch,
	}
	go func() {
		defer close(ch)
		r.drive(ctx, initial, applyOptions(opts))
	}()
	return ch
}

// run holds the per-execution mutable pieces. The step counter is shared
// with parallel branch walks, which is why it is atomic.
type run struct {
	graph  *graph.CompiledGraph
	config types.Config
	log    *slog.Logger
	ch     chan<- types.StepResult
	steps  atomic.Int64
}

func (r *run) drive(ctx context.Context, st *state.ExecutionState, ro runOptions) {
	if st == nil {
		st = state.New()
	}
	if ro.executionID != "" {
		st.ExecutionID = ro.executionID
	}
	if st.ExecutionID == "" {
		st.ExecutionID = uuid.NewString()
	}

	if err := ctx.Err(); err != nil {
		r.send(types.StepResult{Status: types.StatusCancelled, State: st, Err: err})
		return
	}

	queue, err := r.initialQueue(st, ro)
	if err != nil {
		r.send(types.StepResult{Status: types.StatusFailed, State: st, Err: err})
		return
	}
	if len(queue) == 0 {
		// Resuming past a terminal wait node leaves nothing to walk; the
		// wait node itself reports the completion.
		r.checkpointAuto(ctx, st, ro.resumeFrom, types.StatusCompleted)
		r.send(types.StepResult{NodeID: ro.resumeFrom, Status: types.StatusCompleted, State: st})
		return
	}

	inHandler := false
	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			r.send(types.StepResult{Status: types.StatusCancelled, State: st, Err: err})
			return
		}

		nodeID := queue[0]
		queue = queue[1:]

		step := int(r.steps.Add(1))
		if step > r.config.StepBudget() {
			budgetErr := errors.Wrapf(ErrMaxStepsExceeded, "step %d over budget %d", step, r.config.StepBudget())
			r.send(types.StepResult{
				NodeID: nodeID,
				Status: types.StatusFailed,
				State:  st,
				Err:    budgetErr,
				Step:   step,
			})
			return
		}

		node, ok := r.graph.Node(nodeID)
		if !ok {
			r.send(types.StepResult{
				NodeID: nodeID,
				Status: types.StatusFailed,
				State:  st,
				Err:    errors.Wrap(ErrUnknownNode, nodeID),
				Step:   step,
			})
			return
		}

		r.notifyStart(st.ExecutionID, nodeID, step)
		started := time.Now()

		var result types.NodeResult
		var attempts int
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
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				sr.Status = types.StatusCancelled
				sr.Err = err
				r.send(sr)
				return
			}

			nodeErr := &NodeError{NodeID: nodeID, Attempts: attempts, Err: err}
			handler := r.graph.ErrorHandler()
			if handler != "" && !inHandler && nodeID != handler {
				st.Apply(&state.Update{Values: map[string]any{
					KeyError:         err.Error(),
					KeyErrorNode:     nodeID,
					KeyErrorAttempts: attempts,
				}})
				sr.Err = nodeErr
				r.notifyEnd(st.ExecutionID, sr)
				r.send(sr)
				r.log.Warn("routing to error handler",
					"execution_id", st.ExecutionID,
					"node_id", nodeID,
					"handler", handler,
					"error", err)
				queue = []string{handler}
				inHandler = true
				continue
			}

			sr.Status = types.StatusFailed
			sr.Err = nodeErr
			r.notifyEnd(st.ExecutionID, sr)
			r.send(sr)
			return
		}

		st.Apply(result.Update)
		if result.Output != nil {
			st.RecordOutput(nodeID, result.Output)
		}

		if sig, ok := result.FindSignal(types.SignalWarning); ok {
			r.log.Warn("node warning",
				"execution_id", st.ExecutionID,
				"node_id", nodeID,
				"message", sig.Message)
		}
		if result.HasSignal(types.SignalCheckpoint) {
			r.checkpoint(ctx, st, nodeID, types.StatusRunning, "signal")
		}
		if sig, ok := result.FindSignal(types.SignalPause); ok {
			sr.Status = types.StatusPaused
			r.checkpoint(ctx, st, nodeID, types.StatusPaused, sig.Prompt)
			r.notifyEnd(st.ExecutionID, sr)
			r.send(sr)
			return
		}

		if len(result.Next) > 0 {
			queue = append(queue, result.Next...)
		} else if next, ok := r.nextFrom(nodeID, st); ok {
			queue = append(queue, next)
		} else if len(queue) == 0 {
			// A catch handler with no continuation of its own ends the
			// run cleanly.
			if r.graph.IsTerminal(nodeID) || inHandler {
				sr.Status = types.StatusCompleted
				r.checkpointAuto(ctx, st, nodeID, types.StatusCompleted)
				r.notifyEnd(st.ExecutionID, sr)
				r.send(sr)
				return
			}
			sr.Status = types.StatusFailed
			sr.Err = errors.Wrap(ErrNoRoute, nodeID)
			r.notifyEnd(st.ExecutionID, sr)
			r.send(sr)
			return
		}

		r.checkpointAuto(ctx, st, nodeID, types.StatusRunning)
		r.notifyEnd(st.ExecutionID, sr)
		r.send(sr)
	}
}

// initialQueue seeds the walk: the start node, or the continuation past
// a wait node when resuming. An empty queue with a nil error means the
// resume node is terminal and there is nothing left to run.
func (r *run) initialQueue(st *state.ExecutionState, ro runOptions) ([]string, error) {
	if ro.resumeFrom == "" {
		return []string{r.graph.StartNode()}, nil
	}
	if _, ok := r.graph.Node(ro.resumeFrom); !ok {
		return nil, errors.Wrap(ErrUnknownNode, ro.resumeFrom)
	}
	next, ok := r.nextFrom(ro.resumeFrom, st)
	if !ok {
		if r.graph.IsTerminal(ro.resumeFrom) {
			return nil, nil
		}
		return nil, errors.Wrap(ErrNoRoute, ro.resumeFrom)
	}
	return []string{next}, nil
}

// nextFrom picks the first outgoing edge, in declaration order, whose
// condition is nil or true. Branch edges are structural and skipped.
func (r *run) nextFrom(nodeID string, st *state.ExecutionState) (string, bool) {
	for _, e := range r.graph.EdgesFrom(nodeID) {
		if e.Label == graph.LabelBranch {
			continue
		}
		if e.Matches(st) {
			return e.To, true
		}
	}
	return "", false
}

// send delivers a step result unconditionally. Used on the main walk,
// where the stream contract guarantees the caller is pulling; the
// channel cannot be closed underneath it because close happens after
// drive returns.
func (r *run) send(sr types.StepResult) {
	r.ch <- sr
}

// emit sends a step result from a parallel branch, giving up when the
// branch context is cancelled (a lost race or an abandoned run).
func (r *run) emit(ctx context.Context, sr types.StepResult) bool {
	select {
	case r.ch <- sr:
		return true
	case <-ctx.Done():
		return false
	}
}

func (r *run) notifyStart(executionID, nodeID string, step int) {
	for _, obs := range r.config.Observers {
		obs.NodeStart(executionID, nodeID, step)
	}
}

func (r *run) notifyEnd(executionID string, sr types.StepResult) {
	for _, obs := range r.config.Observers {
		obs.NodeEnd(executionID, sr)
	}
}

// checkpointAuto saves only when auto-checkpointing is on.
func (r *run) checkpointAuto(ctx context.Context, st *state.ExecutionState, nodeID string, status types.ExecutionStatus) {
	if !r.config.AutoCheckpoint {
		return
	}
	r.checkpoint(ctx, st, nodeID, status, "auto")
}

// checkpoint persists a snapshot. Persistence is best-effort: failures
// are logged and swallowed so a flaky store never fails a run.
func (r *run) checkpoint(ctx context.Context, st *state.ExecutionState, nodeID string, status types.ExecutionStatus, label string) {
	cp := r.config.Checkpointer
	if cp == nil {
		return
	}
	now := time.Now()
	err := cp.Save(ctx, types.Checkpoint{
		ExecutionID: st.ExecutionID,
		NodeID:      nodeID,
		Label:       label,
		Status:      status,
		Steps:       int(r.steps.Load()),
		State:       st,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		r.log.Warn("checkpoint save failed",
			"execution_id", st.ExecutionID,
			"node_id", nodeID,
			"error", err)
	}
}
