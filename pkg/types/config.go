package types

import "log/slog"

const (
	// DefaultMaxSteps bounds a run when no budget is configured. Sized so a
	// default-budget loop (100 iterations over three nodes) fits.
	DefaultMaxSteps = 1000

	// DefaultMaxConcurrency bounds parallel branch dispatch.
	DefaultMaxConcurrency = 8
)

// Config is the engine configuration merged into a compiled graph.
type Config struct {
	GraphName      string         // Display name of the graph
	MaxSteps       int            // Step budget for one execution
	MaxConcurrency int            // Concurrent parallel branches limit
	Checkpointer   Checkpointer   // Optional state persistence
	AutoCheckpoint bool           // Save after every completed step
	Metadata       map[string]any // Additional caller metadata
	Observers      []Observer     // Metrics/tracing hooks
	Logger         *slog.Logger   // Structured logger; defaults to slog.Default()
}

// StepBudget returns the effective step budget.
func (c *Config) StepBudget() int {
	if c.MaxSteps <= 0 {
		return DefaultMaxSteps
	}
	return c.MaxSteps
}

// Concurrency returns the effective parallel branch limit.
func (c *Config) Concurrency() int {
	if c.MaxConcurrency <= 0 {
		return DefaultMaxConcurrency
	}
	return c.MaxConcurrency
}

// Log returns the configured logger, or the process default.
func (c *Config) Log() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

// Clone returns a shallow copy of the configuration.
func (c *Config) Clone() Config {
	clone := *c
	if c.Metadata != nil {
		clone.Metadata = make(map[string]any, len(c.Metadata))
		for k, v := range c.Metadata {
			clone.Metadata[k] = v
		}
	}
	clone.Observers = append([]Observer(nil), c.Observers...)
	return clone
}
