package executor

// Option customizes a single Run or Stream call.
type Option func(*runOptions)

type runOptions struct {
	executionID string
	resumeFrom  string
}

func applyOptions(opts []Option) runOptions {
	var ro runOptions
	for _, opt := range opts {
		opt(&ro)
	}
	return ro
}

// WithExecutionID pins the execution ID instead of generating one.
func WithExecutionID(id string) Option {
	return func(ro *runOptions) {
		ro.executionID = id
	}
}

// WithResumeFrom continues a paused execution past the given wait node.
// The run starts at the wait node's continuation, chosen by evaluating
// its outgoing edges against the supplied state.
func WithResumeFrom(waitNodeID string) Option {
	return func(ro *runOptions) {
		ro.resumeFrom = waitNodeID
	}
}
