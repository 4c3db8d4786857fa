package agents

import (
	"context"

	"github.com/pkg/errors"
	"github.com/tmc/langchaingo/llms"

	"github.com/avi3tal/flowgraph/pkg/graph"
	"github.com/avi3tal/flowgraph/pkg/state"
	"github.com/avi3tal/flowgraph/pkg/types"
)

const (
	// DefaultPromptKey is the state key a completion agent reads its
	// prompt from when none is configured.
	DefaultPromptKey = "prompt"

	// responseKeySuffix names the state key a completion agent writes its
	// response to: "<nodeID>.response".
	responseKeySuffix = ".response"
)

// CompletionOption customizes a completion agent.
type CompletionOption func(*completionAgent)

// WithPromptKey overrides the state key the prompt is read from.
func WithPromptKey(key string) CompletionOption {
	return func(a *completionAgent) {
		a.promptKey = key
	}
}

// WithCallOptions passes call options (temperature, max tokens, ...)
// through to the model.
func WithCallOptions(opts ...llms.CallOption) CompletionOption {
	return func(a *completionAgent) {
		a.callOpts = opts
	}
}

type completionAgent struct {
	model     llms.Model
	promptKey string
	callOpts  []llms.CallOption
}

// Completion returns an agent node that sends the prompt found in state
// to the model and records the response, both under the node's output
// and in state at "<nodeID>.response". A missing or empty prompt is an
// error so a miswired graph fails loudly.
func Completion(id string, model llms.Model, opts ...CompletionOption) *graph.NodeDefinition {
	a := &completionAgent{
		model:     model,
		promptKey: DefaultPromptKey,
	}
	for _, opt := range opts {
		opt(a)
	}

	return graph.NewNode(id, types.NodeTypeAgent,
		func(ctx context.Context, nc graph.NodeContext) (types.NodeResult, error) {
			prompt := nc.State.GetString(a.promptKey)
			if prompt == "" {
				return types.NodeResult{}, errors.Errorf("no prompt in state under %q", a.promptKey)
			}

			response, err := llms.GenerateFromSinglePrompt(ctx, a.model, prompt, a.callOpts...)
			if err != nil {
				return types.NodeResult{}, errors.Wrapf(err, "completion %q", id)
			}

			return types.NodeResult{
				Output: response,
				Update: &state.Update{Values: map[string]any{
					id + responseKeySuffix: response,
				}},
			}, nil
		})
}
