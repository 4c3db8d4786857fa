// Package observability provides Observer implementations: structured
// logging via slog and Prometheus metrics.
package observability

import (
	"log/slog"

	"github.com/avi3tal/flowgraph/pkg/types"
)

// LogObserver logs execution events through a structured logger.
type LogObserver struct {
	logger *slog.Logger
}

// NewLogObserver wraps the given logger; nil falls back to the process
// default.
func NewLogObserver(logger *slog.Logger) *LogObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogObserver{logger: logger}
}

func (o *LogObserver) GraphCompiled(graphName string, nodes, edges int) {
	o.logger.Info("graph compiled",
		"graph", graphName,
		"nodes", nodes,
		"edges", edges)
}

func (o *LogObserver) NodeStart(executionID, nodeID string, step int) {
	o.logger.Debug("node start",
		"execution_id", executionID,
		"node_id", nodeID,
		"step", step)
}

func (o *LogObserver) NodeEnd(executionID string, result types.StepResult) {
	attrs := []any{
		"execution_id", executionID,
		"node_id", result.NodeID,
		"status", string(result.Status),
		"step", result.Step,
		"attempts", result.Attempts,
		"duration", result.Duration,
	}
	if result.Err != nil {
		o.logger.Error("node failed", append(attrs, "error", result.Err)...)
		return
	}
	o.logger.Info("node done", attrs...)
}
