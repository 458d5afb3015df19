package provider

import "context"

// CompletionRequest is a single-shot prompt. This system never holds a
// conversation with the model; every call is one prompt, one answer.
type CompletionRequest struct {
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float64
}

// Provider is the abstraction over LLM completion APIs.
type Provider interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
	Name() string
}

// Embedder produces a vector embedding for free text, used to build
// similarity-search queries.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}
