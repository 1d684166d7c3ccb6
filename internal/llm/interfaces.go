package llm

import "context"

// TextGenerator is the interface for LLM text completion.
// All generation prompts use single-string completion style (not chat).
//
// Complete answers at low temperature for factual, deterministic output.
// CompleteCreative answers at high temperature; the network builder uses it
// for the opt-in speculative pass, where invented-but-plausible collaborators
// are acceptable.
type TextGenerator interface {
	Complete(ctx context.Context, prompt string) (string, error)
	CompleteCreative(ctx context.Context, prompt string) (string, error)
	GetModel() string
}

// EmbeddingGenerator is the interface for generating vector embeddings.
// Used for artist bio embeddings backing similarity search.
type EmbeddingGenerator interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	GetModel() string
}
