package types

// ExecutionStatus represents the current state of a workflow execution.
type ExecutionStatus string

const (
	StatusRunning   ExecutionStatus = "running"
	StatusCompleted ExecutionStatus = "completed"
	StatusFailed    ExecutionStatus = "failed"
	StatusCancelled ExecutionStatus = "cancelled"
	StatusPaused    ExecutionStatus = "paused" // Waiting for human input
)

// Terminal reports whether the status ends an execution. Paused is terminal
// for the current invocation but the execution remains resumable.
func (s ExecutionStatus) Terminal() bool {
	return s != StatusRunning && s != ""
}

// NodeType tags the behavior variant of a node.
type NodeType string

const (
	NodeTypeAgent    NodeType = "agent"
	NodeTypeTool     NodeType = "tool"
	NodeTypeDecision NodeType = "decision"
	NodeTypeWait     NodeType = "wait"
	NodeTypeParallel NodeType = "parallel"
)

// MergeStrategy governs how a parallel node joins its branches.
type MergeStrategy string

const (
	// MergeAll waits for every branch and merges all of them.
	MergeAll MergeStrategy = "all"
	// MergeRace settles with the first branch to finish, success or failure.
	MergeRace MergeStrategy = "race"
	// MergeAny settles with the first success, failing only if all branches fail.
	MergeAny MergeStrategy = "any"
)
