package checkpoints_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avi3tal/flowgraph/pkg/checkpoints"
	"github.com/avi3tal/flowgraph/pkg/state"
	"github.com/avi3tal/flowgraph/pkg/types"
)

func sampleCheckpoint(executionID string) types.Checkpoint {
	st := state.New(state.WithExecutionID(executionID))
	st.Set("stage", "review")
	now := time.Now().UTC()
	return types.Checkpoint{
		ExecutionID: executionID,
		NodeID:      "review",
		Status:      types.StatusRunning,
		Steps:       3,
		State:       st,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// roundTrip exercises the full Checkpointer contract against any store.
func roundTrip(t *testing.T, store types.Checkpointer) {
	t.Helper()
	ctx := context.Background()

	_, err := store.Load(ctx, "missing")
	assert.ErrorIs(t, err, checkpoints.ErrNotFound)

	require.NoError(t, store.Save(ctx, sampleCheckpoint("exec-1")))
	require.NoError(t, store.Save(ctx, sampleCheckpoint("exec-2")))

	cp, err := store.Load(ctx, "exec-1")
	require.NoError(t, err)
	assert.Equal(t, "exec-1", cp.ExecutionID)
	assert.Equal(t, "review", cp.NodeID)
	assert.Equal(t, 3, cp.Steps)
	require.NotNil(t, cp.State)
	assert.Equal(t, "review", cp.State.GetString("stage"))

	// Saving again replaces the previous snapshot.
	updated := sampleCheckpoint("exec-1")
	updated.NodeID = "publish"
	updated.Steps = 5
	require.NoError(t, store.Save(ctx, updated))

	cp, err = store.Load(ctx, "exec-1")
	require.NoError(t, err)
	assert.Equal(t, "publish", cp.NodeID)
	assert.Equal(t, 5, cp.Steps)

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"exec-1", "exec-2"}, ids)

	require.NoError(t, store.Delete(ctx, "exec-1"))
	_, err = store.Load(ctx, "exec-1")
	assert.ErrorIs(t, err, checkpoints.ErrNotFound)

	ids, err = store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"exec-2"}, ids)
}

func TestMemoryStore(t *testing.T) {
	t.Parallel()
	roundTrip(t, checkpoints.NewMemoryStore())
}

func TestMemoryStoreSnapshotsAreIsolated(t *testing.T) {
	t.Parallel()

	store := checkpoints.NewMemoryStore()
	cp := sampleCheckpoint("exec-1")
	require.NoError(t, store.Save(context.Background(), cp))

	// Mutating the live state must not change the stored snapshot.
	cp.State.Set("stage", "mutated")

	loaded, err := store.Load(context.Background(), "exec-1")
	require.NoError(t, err)
	assert.Equal(t, "review", loaded.State.GetString("stage"))
}

func TestFileStore(t *testing.T) {
	t.Parallel()

	store, err := checkpoints.NewFileStore(t.TempDir())
	require.NoError(t, err)
	roundTrip(t, store)
}

func TestFileStoreSurvivesReopen(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := checkpoints.NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Save(context.Background(), sampleCheckpoint("exec-1")))

	reopened, err := checkpoints.NewFileStore(dir)
	require.NoError(t, err)
	cp, err := reopened.Load(context.Background(), "exec-1")
	require.NoError(t, err)
	assert.Equal(t, "review", cp.NodeID)
}

func newRedisStore(t *testing.T, opts ...checkpoints.RedisOption) (*checkpoints.RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return checkpoints.NewRedisStoreFromClient(client, opts...), mr
}

func TestRedisStore(t *testing.T) {
	t.Parallel()

	store, _ := newRedisStore(t)
	roundTrip(t, store)
}

func TestRedisStoreTTLExpiration(t *testing.T) {
	t.Parallel()

	store, mr := newRedisStore(t, checkpoints.WithTTL(time.Second))
	require.NoError(t, store.Save(context.Background(), sampleCheckpoint("exec-1")))

	mr.FastForward(2 * time.Second)

	_, err := store.Load(context.Background(), "exec-1")
	assert.ErrorIs(t, err, checkpoints.ErrNotFound)

	// List prunes expired executions from the index.
	ids, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestRedisStoreCustomPrefix(t *testing.T) {
	t.Parallel()

	store, mr := newRedisStore(t, checkpoints.WithPrefix("custom:cp:"))
	require.NoError(t, store.Save(context.Background(), sampleCheckpoint("exec-1")))

	assert.True(t, mr.Exists("custom:cp:exec-1"))
	assert.True(t, mr.Exists("custom:cp:index"))
}
