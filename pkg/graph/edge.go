package graph

import "github.com/avi3tal/flowgraph/pkg/state"

// Edge labels assigned by the builder when lowering control flow.
const (
	// LabelThen marks the guarded branch of a decision node.
	LabelThen = "then"

	// LabelElse marks the fallback branch of a decision node.
	LabelElse = "else"

	// LabelLoopContinue marks the back edge of a loop check node.
	LabelLoopContinue = "loop-continue"

	// LabelBranch marks a structural edge from a parallel node to one of
	// its branches. Branch edges exist for introspection and are never
	// followed by sequential routing.
	LabelBranch = "branch"
)

// Condition guards an edge. It must be a pure function of the state.
type Condition func(s *state.ExecutionState) bool

// Edge is a directed transition between two nodes. An edge with a nil
// Condition always matches.
type Edge struct {
	From      string
	To        string
	Condition Condition
	Label     string
}

// Matches reports whether the edge may be taken given the state.
func (e Edge) Matches(s *state.ExecutionState) bool {
	if e.Condition == nil {
		return true
	}
	return e.Condition(s)
}
