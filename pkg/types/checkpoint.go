package types

import (
	"context"
	"time"

	"github.com/avi3tal/flowgraph/pkg/state"
)

// Checkpoint is a resumable snapshot of one execution.
type Checkpoint struct {
	ExecutionID string                `json:"execution_id"`
	NodeID      string                `json:"node_id"` // last executed node
	Label       string                `json:"label,omitempty"`
	Status      ExecutionStatus       `json:"status"`
	Steps       int                   `json:"steps"`
	State       *state.ExecutionState `json:"state"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
}

// Checkpointer persists execution snapshots. Implementations are supplied
// externally (memory-, filesystem- or Redis-backed) and must tolerate
// concurrent Save calls when shared across executions; the engine treats
// persistence as best-effort and imposes no locking.
type Checkpointer interface {
	// Save persists the checkpoint, replacing any previous one for the
	// same execution ID.
	Save(ctx context.Context, cp Checkpoint) error

	// Load retrieves the last checkpoint for an execution.
	Load(ctx context.Context, executionID string) (*Checkpoint, error)

	// List returns the execution IDs with a stored checkpoint.
	List(ctx context.Context) ([]string, error)

	// Delete removes an execution's checkpoint.
	Delete(ctx context.Context, executionID string) error
}
