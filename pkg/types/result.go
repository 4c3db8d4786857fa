package types

import (
	"time"

	"github.com/avi3tal/flowgraph/pkg/state"
)

// NodeResult encapsulates the outcome of one node execution.
type NodeResult struct {
	// Output is the node's result payload, recorded in the state's Outputs
	// map under the node's ID.
	Output any

	// Update is an optional partial state update, merged by the executor
	// (shallow for Values, per-node deep merge for Outputs).
	Update *state.Update

	// Next is an optional explicit routing override. One or more node IDs;
	// takes precedence over edge evaluation. Multiple IDs are executed as
	// sequential continuations sharing the execution's state.
	Next []string

	// Signals carries zero or more out-of-band events.
	Signals []Signal
}

// Goto returns a result routing explicitly to the given nodes.
func Goto(nodeIDs ...string) NodeResult {
	return NodeResult{Next: nodeIDs}
}

// HasSignal reports whether the result carries a signal of the given kind.
func (r *NodeResult) HasSignal(kind SignalKind) bool {
	for _, s := range r.Signals {
		if s.Kind == kind {
			return true
		}
	}
	return false
}

// FindSignal returns the first signal of the given kind.
func (r *NodeResult) FindSignal(kind SignalKind) (Signal, bool) {
	for _, s := range r.Signals {
		if s.Kind == kind {
			return s, true
		}
	}
	return Signal{}, false
}

// StepResult is the externally visible outcome of executing one node.
// Streaming yields exactly one StepResult per executed node; the final
// StepResult of a run carries the terminal status.
type StepResult struct {
	NodeID   string
	Status   ExecutionStatus
	State    *state.ExecutionState
	Result   *NodeResult
	Err      error
	Attempts int
	Step     int
	Duration time.Duration
}
