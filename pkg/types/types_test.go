package types_test

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/avi3tal/flowgraph/pkg/types"
)

func TestStatusTerminal(t *testing.T) {
	t.Parallel()

	assert.False(t, types.StatusRunning.Terminal())
	assert.True(t, types.StatusCompleted.Terminal())
	assert.True(t, types.StatusFailed.Terminal())
	assert.True(t, types.StatusCancelled.Terminal())
	assert.True(t, types.StatusPaused.Terminal())
}

func TestRetryConfigDefaults(t *testing.T) {
	t.Parallel()

	var rc *types.RetryConfig
	assert.Equal(t, types.DefaultMaxAttempts, rc.Attempts())
	assert.True(t, rc.ShouldRetry(errors.New("any")))
	assert.Equal(t, types.DefaultBackoff, rc.Delay(1))
}

func TestRetryConfigDelayGrowsExponentially(t *testing.T) {
	t.Parallel()

	rc := types.NewRetryConfig().
		WithBackoff(50 * time.Millisecond).
		WithBackoffMultiplier(2.0)

	assert.Equal(t, 50*time.Millisecond, rc.Delay(1))
	assert.Equal(t, 100*time.Millisecond, rc.Delay(2))
	assert.Equal(t, 200*time.Millisecond, rc.Delay(3))
}

func TestRetryConfigRetryOn(t *testing.T) {
	t.Parallel()

	sentinel := errors.New("permanent")
	rc := types.NewRetryConfig().WithRetryOn(func(err error) bool {
		return !errors.Is(err, sentinel)
	})

	assert.False(t, rc.ShouldRetry(sentinel))
	assert.True(t, rc.ShouldRetry(errors.New("transient")))
}

func TestNodeResultSignals(t *testing.T) {
	t.Parallel()

	r := types.NodeResult{Signals: []types.Signal{
		types.Warning("context almost full"),
		types.Pause("continue?"),
	}}

	assert.True(t, r.HasSignal(types.SignalPause))
	assert.False(t, r.HasSignal(types.SignalCheckpoint))

	sig, ok := r.FindSignal(types.SignalPause)
	assert.True(t, ok)
	assert.Equal(t, "continue?", sig.Prompt)
}

func TestGotoSetsNext(t *testing.T) {
	t.Parallel()

	r := types.Goto("audit", "publish")
	assert.Equal(t, []string{"audit", "publish"}, r.Next)
}

func TestConfigFallbacks(t *testing.T) {
	t.Parallel()

	var c types.Config
	assert.Equal(t, types.DefaultMaxSteps, c.StepBudget())
	assert.Equal(t, types.DefaultMaxConcurrency, c.Concurrency())
	assert.NotNil(t, c.Log())

	c.MaxSteps = 7
	c.MaxConcurrency = 2
	assert.Equal(t, 7, c.StepBudget())
	assert.Equal(t, 2, c.Concurrency())
}

func TestConfigCloneIsIndependent(t *testing.T) {
	t.Parallel()

	c := types.Config{Metadata: map[string]any{"env": "test"}}
	clone := c.Clone()
	clone.Metadata["env"] = "changed"
	assert.Equal(t, "test", c.Metadata["env"])
}
