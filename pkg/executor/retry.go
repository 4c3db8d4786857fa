package executor

import (
	"context"
	"time"

	"github.com/avi3tal/flowgraph/pkg/graph"
	"github.com/avi3tal/flowgraph/pkg/state"
	"github.com/avi3tal/flowgraph/pkg/types"
)

// invoke runs a node with its retry policy. It returns the successful
// result, the number of attempts made, and the last error when every
// attempt failed. Backoff sleeps are context-aware; a RetryOn predicate
// returning false stops retrying at the failing attempt.
func (r *run) invoke(ctx context.Context, node *graph.NodeDefinition, st *state.ExecutionState) (types.NodeResult, int, error) {
	rc := node.Retry
	limit := rc.Attempts()

	var lastErr error
	for attempt := 1; attempt <= limit; attempt++ {
		result, err := node.Execute(ctx, graph.NodeContext{
			State:  st,
			NodeID: node.ID,
			Config: r.config,
		})
		if err == nil {
			return result, attempt, nil
		}
		lastErr = err

		if !rc.ShouldRetry(err) {
			return types.NodeResult{}, attempt, err
		}
		if attempt == limit {
			break
		}

		r.log.Debug("retrying node",
			"node_id", node.ID,
			"attempt", attempt,
			"backoff", rc.Delay(attempt),
			"error", err)

		select {
		case <-time.After(rc.Delay(attempt)):
		case <-ctx.Done():
			return types.NodeResult{}, attempt, ctx.Err()
		}
	}
	return types.NodeResult{}, limit, lastErr
}
