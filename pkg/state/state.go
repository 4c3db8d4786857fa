package state

import (
	"time"

	"github.com/google/uuid"
)

// ExecutionState carries the data for one workflow execution. It is owned
// exclusively by that execution and mutated only through Apply, which the
// executor calls once per completed step.
type ExecutionState struct {
	// ExecutionID uniquely identifies this execution.
	ExecutionID string `json:"execution_id"`

	// LastUpdated is refreshed on every merge.
	LastUpdated time.Time `json:"last_updated"`

	// Values holds caller-defined data. Updates are shallow-merged key by key.
	Values map[string]any `json:"values"`

	// Outputs maps node ID to that node's last result payload. Entries
	// accumulate over the run; per-node payloads deep-merge when both the
	// existing and incoming payloads are maps.
	Outputs map[string]any `json:"outputs"`
}

// Option configures a new ExecutionState.
type Option func(*ExecutionState)

// WithExecutionID overrides the generated execution ID.
func WithExecutionID(id string) Option {
	return func(s *ExecutionState) {
		s.ExecutionID = id
	}
}

// WithValues seeds the initial caller data.
func WithValues(values map[string]any) Option {
	return func(s *ExecutionState) {
		for k, v := range values {
			s.Values[k] = v
		}
	}
}

// New creates an empty ExecutionState with a generated execution ID.
func New(opts ...Option) *ExecutionState {
	s := &ExecutionState{
		ExecutionID: uuid.New().String(),
		LastUpdated: time.Now().UTC(),
		Values:      make(map[string]any),
		Outputs:     make(map[string]any),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Update is a partial state change returned by a node. Values are
// shallow-merged; Outputs follow the per-node deep-merge rule.
type Update struct {
	Values  map[string]any
	Outputs map[string]any
}

// Get retrieves a caller value by key.
func (s *ExecutionState) Get(key string) (any, bool) {
	v, ok := s.Values[key]
	return v, ok
}

// GetString retrieves a string value, or "" if absent or not a string.
func (s *ExecutionState) GetString(key string) string {
	if v, ok := s.Values[key].(string); ok {
		return v
	}
	return ""
}

// GetInt retrieves an integer value, tolerating float64 from JSON decoding.
func (s *ExecutionState) GetInt(key string) int {
	switch v := s.Values[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

// GetBool retrieves a boolean value, or false if absent or not a bool.
func (s *ExecutionState) GetBool(key string) bool {
	if v, ok := s.Values[key].(bool); ok {
		return v
	}
	return false
}

// Set stores a caller value. Intended for seeding state before a run or
// between a pause and a resume; nodes should return an Update instead.
func (s *ExecutionState) Set(key string, value any) {
	if s.Values == nil {
		s.Values = make(map[string]any)
	}
	s.Values[key] = value
	s.LastUpdated = time.Now().UTC()
}

// Output returns the last recorded payload for a node.
func (s *ExecutionState) Output(nodeID string) (any, bool) {
	v, ok := s.Outputs[nodeID]
	return v, ok
}

// Apply merges a partial update into the state and refreshes LastUpdated.
// A nil update still counts as a merge.
func (s *ExecutionState) Apply(u *Update) {
	if s.Values == nil {
		s.Values = make(map[string]any)
	}
	if s.Outputs == nil {
		s.Outputs = make(map[string]any)
	}
	if u != nil {
		for k, v := range u.Values {
			s.Values[k] = v
		}
		for nodeID, payload := range u.Outputs {
			s.RecordOutput(nodeID, payload)
		}
	}
	s.LastUpdated = time.Now().UTC()
}

// RecordOutput stores a node's result payload. When both the existing and
// the incoming payloads are maps they deep-merge; otherwise the incoming
// payload replaces the previous one. The Outputs map itself only grows.
func (s *ExecutionState) RecordOutput(nodeID string, payload any) {
	if s.Outputs == nil {
		s.Outputs = make(map[string]any)
	}
	existing, ok := s.Outputs[nodeID].(map[string]any)
	incoming, ok2 := payload.(map[string]any)
	if ok && ok2 {
		s.Outputs[nodeID] = deepMerge(existing, incoming)
		return
	}
	s.Outputs[nodeID] = payload
}

// Clone creates a deep copy of the state.
func (s *ExecutionState) Clone() *ExecutionState {
	clone := &ExecutionState{
		ExecutionID: s.ExecutionID,
		LastUpdated: s.LastUpdated,
		Values:      make(map[string]any, len(s.Values)),
		Outputs:     make(map[string]any, len(s.Outputs)),
	}
	for k, v := range s.Values {
		clone.Values[k] = deepCopy(v)
	}
	for k, v := range s.Outputs {
		clone.Outputs[k] = deepCopy(v)
	}
	return clone
}

// deepMerge merges src into a copy of dst, recursing into nested maps.
func deepMerge(dst, src map[string]any) map[string]any {
	out := make(map[string]any, len(dst)+len(src))
	for k, v := range dst {
		out[k] = v
	}
	for k, v := range src {
		if prev, ok := out[k].(map[string]any); ok {
			if next, ok := v.(map[string]any); ok {
				out[k] = deepMerge(prev, next)
				continue
			}
		}
		out[k] = v
	}
	return out
}

// deepCopy performs a deep copy of an arbitrary value.
func deepCopy(v any) any {
	switch val := v.(type) {
	case map[string]any:
		newMap := make(map[string]any, len(val))
		for k, item := range val {
			newMap[k] = deepCopy(item)
		}
		return newMap
	case []any:
		newSlice := make([]any, len(val))
		for i, item := range val {
			newSlice[i] = deepCopy(item)
		}
		return newSlice
	default:
		// Scalars are immutable; other types are returned as is.
		return val
	}
}
