package engineports

import "context"

// Options controls sampling and limits for a single generation call.
type Options struct {
	MaxNewTokens int
	Temperature  float32
	TopP         float32
	Stop         []string
	// TimeoutMs applies to the provider call only, not the overall request.
	TimeoutMs int
}

// Usage captures token accounting for cost/telemetry.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Completion is the provider's response: a single text blob which may embed
// fenced JSON, bare JSON, intent markers, or plain prose.
type Completion struct {
	Text  string
	Usage *Usage // optional usage information
}

// Provider is the abstraction for the external text generator. Callers must
// impose their own timeout/cancellation through ctx; the engine defines no
// retry policy of its own.
type Provider interface {
	Complete(ctx context.Context, prompt string, opts Options) (Completion, error)
}
