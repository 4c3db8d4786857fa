package state_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avi3tal/flowgraph/pkg/state"
)

func TestNewGeneratesExecutionID(t *testing.T) {
	t.Parallel()

	a := state.New()
	b := state.New()
	assert.NotEmpty(t, a.ExecutionID)
	assert.NotEqual(t, a.ExecutionID, b.ExecutionID)
}

func TestNewWithOptions(t *testing.T) {
	t.Parallel()

	s := state.New(
		state.WithExecutionID("exec-42"),
		state.WithValues(map[string]any{"topic": "weather"}),
	)
	assert.Equal(t, "exec-42", s.ExecutionID)
	assert.Equal(t, "weather", s.GetString("topic"))
}

func TestApplyShallowMergesValues(t *testing.T) {
	t.Parallel()

	s := state.New()
	s.Set("keep", "original")
	s.Set("replace", "old")
	before := s.LastUpdated

	s.Apply(&state.Update{Values: map[string]any{
		"replace": "new",
		"added":   42,
	}})

	assert.Equal(t, "original", s.GetString("keep"))
	assert.Equal(t, "new", s.GetString("replace"))
	assert.Equal(t, 42, s.GetInt("added"))
	assert.False(t, s.LastUpdated.Before(before))
}

func TestApplyNilUpdateStillRefreshesTimestamp(t *testing.T) {
	t.Parallel()

	s := state.New()
	before := s.LastUpdated
	time.Sleep(time.Millisecond)

	s.Apply(nil)
	assert.True(t, s.LastUpdated.After(before))
}

func TestRecordOutputAccumulates(t *testing.T) {
	t.Parallel()

	s := state.New()
	s.RecordOutput("fetch", "payload")
	s.RecordOutput("score", 7)

	out, ok := s.Output("fetch")
	require.True(t, ok)
	assert.Equal(t, "payload", out)

	_, ok = s.Output("score")
	assert.True(t, ok)
}

func TestRecordOutputDeepMergesMaps(t *testing.T) {
	t.Parallel()

	s := state.New()
	s.RecordOutput("analyze", map[string]any{
		"scores": map[string]any{"clarity": 0.8},
		"tags":   []any{"draft"},
	})
	s.RecordOutput("analyze", map[string]any{
		"scores": map[string]any{"tone": 0.6},
	})

	out, ok := s.Output("analyze")
	require.True(t, ok)
	m := out.(map[string]any)
	scores := m["scores"].(map[string]any)
	assert.Equal(t, 0.8, scores["clarity"])
	assert.Equal(t, 0.6, scores["tone"])
	assert.Equal(t, []any{"draft"}, m["tags"])
}

func TestRecordOutputNonMapReplaces(t *testing.T) {
	t.Parallel()

	s := state.New()
	s.RecordOutput("fetch", map[string]any{"rows": 3})
	s.RecordOutput("fetch", "plain string")

	out, _ := s.Output("fetch")
	assert.Equal(t, "plain string", out)
}

func TestGetIntToleratesJSONNumbers(t *testing.T) {
	t.Parallel()

	s := state.New()
	s.Set("as_int", 3)
	s.Set("as_int64", int64(4))
	s.Set("as_float", float64(5))
	s.Set("as_string", "6")

	assert.Equal(t, 3, s.GetInt("as_int"))
	assert.Equal(t, 4, s.GetInt("as_int64"))
	assert.Equal(t, 5, s.GetInt("as_float"))
	assert.Equal(t, 0, s.GetInt("as_string"))
	assert.Equal(t, 0, s.GetInt("missing"))
}

func TestCloneIsDeep(t *testing.T) {
	t.Parallel()

	s := state.New(state.WithExecutionID("exec-1"))
	s.Set("nested", map[string]any{"inner": []any{"a", "b"}})
	s.RecordOutput("node", map[string]any{"n": 1})

	clone := s.Clone()
	assert.Equal(t, "exec-1", clone.ExecutionID)

	clone.Values["nested"].(map[string]any)["inner"].([]any)[0] = "mutated"
	clone.Outputs["node"].(map[string]any)["n"] = 99

	assert.Equal(t, "a", s.Values["nested"].(map[string]any)["inner"].([]any)[0])
	assert.Equal(t, 1, s.Outputs["node"].(map[string]any)["n"])
}

func TestApplyRoutesOutputsThroughMergeRule(t *testing.T) {
	t.Parallel()

	s := state.New()
	s.RecordOutput("analyze", map[string]any{"clarity": 0.8})

	s.Apply(&state.Update{Outputs: map[string]any{
		"analyze": map[string]any{"tone": 0.6},
	}})

	out, _ := s.Output("analyze")
	m := out.(map[string]any)
	assert.Equal(t, 0.8, m["clarity"])
	assert.Equal(t, 0.6, m["tone"])
}
