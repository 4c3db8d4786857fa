package executor

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrMaxStepsExceeded is returned when an execution runs past its step
	// budget.
	ErrMaxStepsExceeded = errors.New("max steps exceeded")

	// ErrNoRoute is returned when a non-terminal node has no matching
	// outgoing edge and no explicit routing.
	ErrNoRoute = errors.New("no route from node")

	// ErrUnknownNode is returned when routing names a node the graph does
	// not contain.
	ErrUnknownNode = errors.New("unknown node")

	// ErrAllBranchesFailed is returned by an "any" parallel merge when no
	// branch succeeds.
	ErrAllBranchesFailed = errors.New("all parallel branches failed")
)

// State keys merged in before transferring control to a Catch handler.
const (
	KeyError         = "error"
	KeyErrorNode     = "error_node"
	KeyErrorAttempts = "error_attempts"
)

// NodeError wraps a node failure after retry exhaustion.
type NodeError struct {
	NodeID   string
	Attempts int
	Err      error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("node %q failed after %d attempt(s): %v", e.NodeID, e.Attempts, e.Err)
}

func (e *NodeError) Unwrap() error {
	return e.Err
}
