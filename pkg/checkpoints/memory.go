// Package checkpoints provides Checkpointer implementations backed by
// memory, the filesystem and Redis.
package checkpoints

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/avi3tal/flowgraph/pkg/types"
)

// ErrNotFound is returned when no checkpoint exists for an execution.
var ErrNotFound = errors.New("checkpoint not found")

// MemoryStore keeps checkpoints in process memory. Useful for tests and
// single-process runs.
type MemoryStore struct {
	mu          sync.RWMutex
	checkpoints map[string]types.Checkpoint
}

// NewMemoryStore creates an empty in-memory checkpoint store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		checkpoints: make(map[string]types.Checkpoint),
	}
}

// Save stores a snapshot, replacing any previous one for the execution.
// The state is deep-copied so later mutations by the running execution
// do not leak into the stored snapshot.
func (m *MemoryStore) Save(_ context.Context, cp types.Checkpoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if prev, ok := m.checkpoints[cp.ExecutionID]; ok {
		cp.CreatedAt = prev.CreatedAt
	}
	if cp.State != nil {
		cp.State = cp.State.Clone()
	}
	m.checkpoints[cp.ExecutionID] = cp
	return nil
}

// Load retrieves the last snapshot for an execution.
func (m *MemoryStore) Load(_ context.Context, executionID string) (*types.Checkpoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cp, ok := m.checkpoints[executionID]
	if !ok {
		return nil, errors.Wrap(ErrNotFound, executionID)
	}
	if cp.State != nil {
		cp.State = cp.State.Clone()
	}
	return &cp, nil
}

// List returns the stored execution IDs in sorted order.
func (m *MemoryStore) List(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.checkpoints))
	for id := range m.checkpoints {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Delete removes an execution's snapshot. Deleting a missing execution
// is not an error.
func (m *MemoryStore) Delete(_ context.Context, executionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.checkpoints, executionID)
	return nil
}
