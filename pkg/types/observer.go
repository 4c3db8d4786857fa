package types

// Observer receives graph configuration and step execution events for
// metrics and tracing. Observers are called synchronously from the
// execution path and must be cheap; the engine never fails a run because
// of an observer.
type Observer interface {
	// GraphCompiled is called once when a graph is compiled.
	GraphCompiled(graphName string, nodes, edges int)

	// NodeStart is called before a node executes (before the first attempt).
	NodeStart(executionID, nodeID string, step int)

	// NodeEnd is called after a node settles, with the step's result.
	NodeEnd(executionID string, result StepResult)
}
