package graph

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrNilNode is returned when a nil node definition is added.
	ErrNilNode = errors.New("node definition is nil")

	// ErrEmptyNodeID is returned when a node has no ID.
	ErrEmptyNodeID = errors.New("node ID is empty")

	// ErrDuplicateNode is returned when a node ID is added twice.
	ErrDuplicateNode = errors.New("node already exists")

	// ErrStartAlreadySet is returned when Start is called twice.
	ErrStartAlreadySet = errors.New("start node already set")

	// ErrNoStartNode is returned when compiling a graph without a start node.
	ErrNoStartNode = errors.New("no start node")

	// ErrNoCurrentNode is returned when a chaining operation has no node to
	// attach to.
	ErrNoCurrentNode = errors.New("no current node")

	// ErrNoOpenScope is returned when Else or EndIf is called outside an If.
	ErrNoOpenScope = errors.New("no open conditional scope")

	// ErrElseAlreadyOpen is returned when Else is called twice in one scope.
	ErrElseAlreadyOpen = errors.New("else branch already open")

	// ErrUnclosedScope is returned when compiling with an If left open.
	ErrUnclosedScope = errors.New("unclosed conditional scope")

	// ErrNilPredicate is returned when If or Loop is given a nil predicate.
	ErrNilPredicate = errors.New("predicate is nil")

	// ErrNoBranches is returned when Parallel is given no branches.
	ErrNoBranches = errors.New("parallel requires at least one branch")

	// ErrNotExecutable is returned when a non-parallel node has no Execute
	// function at compile time.
	ErrNotExecutable = errors.New("node has no execute function")

	// ErrNodeNotFound is returned when an edge references an unknown node.
	ErrNodeNotFound = errors.New("node not found")
)

// BuildError records where a builder operation failed. The first build
// error sticks; later operations become no-ops and Compile returns it.
type BuildError struct {
	Op   string
	Node string
	Err  error
}

func (e *BuildError) Error() string {
	if e.Node == "" {
		return fmt.Sprintf("graph build: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("graph build: %s: node %q: %v", e.Op, e.Node, e.Err)
}

func (e *BuildError) Unwrap() error {
	return e.Err
}

func buildErr(op, node string, err error) error {
	return &BuildError{Op: op, Node: node, Err: err}
}
