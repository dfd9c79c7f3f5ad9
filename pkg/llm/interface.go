package llm

import "context"

// Completer is the surface the Correction Graph and SQL Agent depend
// on — satisfied by Client in production and by Stub in tests.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string, temperature float64) (string, error)
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string, temperature float64, target any) error
}
