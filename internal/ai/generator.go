package ai

import "context"

// Generator produces one textual completion for a prompt. It is the whole
// contract the pipeline has with a concrete AI provider; everything task
// specific lives in the provider packages.
type Generator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
	Model() string
}
