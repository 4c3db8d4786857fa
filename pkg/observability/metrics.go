package observability

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/avi3tal/flowgraph/pkg/types"
)

// PrometheusObserver exports execution metrics to a caller-supplied
// registry. One instance may observe many graphs and executions.
type PrometheusObserver struct {
	graphsCompiled *prometheus.CounterVec
	stepsTotal     *prometheus.CounterVec
	stepDuration   *prometheus.HistogramVec
	retriesTotal   *prometheus.CounterVec
	executions     *prometheus.CounterVec
}

// NewPrometheusObserver creates and registers the metric set.
func NewPrometheusObserver(reg prometheus.Registerer) *PrometheusObserver {
	o := &PrometheusObserver{
		graphsCompiled: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flowgraph_graphs_compiled_total",
				Help: "Number of graph compilations.",
			},
			[]string{"graph"},
		),
		stepsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flowgraph_steps_total",
				Help: "Executed steps by node and settling status.",
			},
			[]string{"node_id", "status"},
		),
		stepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "flowgraph_step_duration_seconds",
				Help:    "Wall time of one node execution, retries included.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"node_id"},
		),
		retriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flowgraph_retries_total",
				Help: "Retry attempts beyond the first, by node.",
			},
			[]string{"node_id"},
		),
		executions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flowgraph_executions_total",
				Help: "Finished executions by terminal status.",
			},
			[]string{"status"},
		),
	}
	reg.MustRegister(o.graphsCompiled, o.stepsTotal, o.stepDuration, o.retriesTotal, o.executions)
	return o
}

func (o *PrometheusObserver) GraphCompiled(graphName string, _, _ int) {
	o.graphsCompiled.WithLabelValues(graphName).Inc()
}

func (o *PrometheusObserver) NodeStart(_, _ string, _ int) {}

func (o *PrometheusObserver) NodeEnd(_ string, result types.StepResult) {
	o.stepsTotal.WithLabelValues(result.NodeID, string(result.Status)).Inc()
	o.stepDuration.WithLabelValues(result.NodeID).Observe(result.Duration.Seconds())
	if result.Attempts > 1 {
		o.retriesTotal.WithLabelValues(result.NodeID).Add(float64(result.Attempts - 1))
	}
	if result.Status.Terminal() {
		o.executions.WithLabelValues(string(result.Status)).Inc()
	}
}
