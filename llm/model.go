// Package llm abstracts the generation collaborator: prompt text in,
// completion text out. Implementations may fail or return malformed output;
// callers own the fallback policy.
package llm

import "context"

// Model is a text-generation collaborator.
type Model interface {
	// Generate renders a completion for the prompt. The system message may
	// be empty. Implementations should honor ctx cancellation.
	Generate(ctx context.Context, system, prompt string) (string, error)
}

// ModelFunc adapts a plain function to the Model interface. Useful for test
// doubles.
type ModelFunc func(ctx context.Context, system, prompt string) (string, error)

// Generate calls the underlying function.
func (f ModelFunc) Generate(ctx context.Context, system, prompt string) (string, error) {
	return f(ctx, system, prompt)
}
