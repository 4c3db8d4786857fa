package types

// SignalKind identifies an out-of-band event emitted by a node.
type SignalKind string

const (
	// SignalPause requests a pause for human input. The executor stops at
	// the emitting node and reports StatusPaused.
	SignalPause SignalKind = "pause"

	// SignalCheckpoint requests an immediate checkpoint save, regardless of
	// the auto-checkpoint setting.
	SignalCheckpoint SignalKind = "checkpoint"

	// SignalWarning carries a non-fatal notice (e.g. context-usage warning)
	// surfaced to observers without halting execution.
	SignalWarning SignalKind = "warning"
)

// Signal is an out-of-band event attached to a NodeResult. Signals alter
// executor behavior without being errors.
type Signal struct {
	Kind    SignalKind     `json:"kind"`
	Prompt  string         `json:"prompt,omitempty"`  // pause: what to ask the human
	Message string         `json:"message,omitempty"` // warning: what happened
	Meta    map[string]any `json:"meta,omitempty"`
}

// Pause builds a pause-for-input signal carrying a prompt.
func Pause(prompt string) Signal {
	return Signal{Kind: SignalPause, Prompt: prompt}
}

// CheckpointNow builds a checkpoint request signal.
func CheckpointNow() Signal {
	return Signal{Kind: SignalCheckpoint}
}

// Warning builds a warning signal.
func Warning(message string) Signal {
	return Signal{Kind: SignalWarning, Message: message}
}
