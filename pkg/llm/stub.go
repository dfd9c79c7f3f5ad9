package llm

import (
	"context"
	"encoding/json"
	"fmt"
)

// Stub is a deterministic Completer double used by pkg/correction and
// pkg/sqlagent unit tests. Responses queue in call order; CompleteJSON
// decodes the next queued response as JSON into its target.
type Stub struct {
	Responses []string
	Err       error

	calls int
}

// NewStub builds a Stub that returns responses in order, then repeats
// the last one for any extra calls.
func NewStub(responses ...string) *Stub {
	return &Stub{Responses: responses}
}

// Complete implements Completer.
func (s *Stub) Complete(_ context.Context, _, _ string, _ float64) (string, error) {
	if s.Err != nil {
		return "", s.Err
	}
	if len(s.Responses) == 0 {
		return "", nil
	}
	idx := s.calls
	if idx >= len(s.Responses) {
		idx = len(s.Responses) - 1
	}
	s.calls++
	return s.Responses[idx], nil
}

// CompleteJSON implements Completer by decoding the queued text response.
func (s *Stub) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string, temperature float64, target any) error {
	text, err := s.Complete(ctx, systemPrompt, userPrompt, temperature)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(text), target); err != nil {
		return fmt.Errorf("llm: stub decode json response: %w", err)
	}
	return nil
}
