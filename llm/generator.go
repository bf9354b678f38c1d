// Package llm provides clients for the remote generation services used to
// extract address fields from composed prompts.
package llm

import "context"

// Generator issues a single synchronous generation call and returns the
// model's textual payload. Implementations are stateless from the caller's
// perspective and safe for concurrent use.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
