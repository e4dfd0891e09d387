package ports

import "context"

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type ChatMessage struct {
	Role    string
	Content string
}

type CompletionRequest struct {
	Model    string
	Messages []ChatMessage
	JSONMode bool
}

// ChatClient is one LLM backend. Implementations return the raw text of the
// model's reply.
type ChatClient interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}
