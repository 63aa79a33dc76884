package llm

import "context"

// CompletionRequest is one chat-completion call
type CompletionRequest struct {
	Model       string
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int
}

// Client is the interface for chat-completion LLM providers.
// Implement this interface to add new providers (OpenAI, Ollama, etc.)
type Client interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}
