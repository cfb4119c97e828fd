// Package provider abstracts the external model collaborators: an embedding
// provider that maps text to fixed-length vectors and an answer generator
// that maps a prompt to free text. The orchestrator depends only on these
// interfaces; implementations may be remote APIs or local model servers.
package provider

import "context"

// Embedder maps texts to fixed-dimension vectors. Implementations must return
// one vector per input text, all of the same dimension.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Generator produces free text from a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
