package service

import (
	"context"
)

// Completer is the generative model contract the fallback depends on.
type Completer interface {
	// Complete sends a system prompt and a user message and returns the
	// model's raw reply.
	Complete(ctx context.Context, systemPrompt, userMessage string) (Completion, error)

	// IsEnabled returns whether the client is configured and ready
	IsEnabled() bool
}

// Completion is a raw model reply with its token usage.
type Completion struct {
	Content      string
	InputTokens  int
	OutputTokens int
}

// Ensure OpenAIClient implements Completer
var _ Completer = (*OpenAIClient)(nil)
