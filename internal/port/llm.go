package port

import "context"

// ChatModel generates text from a prompt. Implementations retry
// transient provider failures a bounded number of times before
// surfacing the error.
type ChatModel interface {
	// Generate produces a completion for the user prompt under the
	// given system prompt.
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)

	// ModelName returns the name of the model.
	ModelName() string
}
