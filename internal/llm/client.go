package llm

import "context"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one prior conversation turn. The system prompt travels
// separately in Request.System.
type Message struct {
	Role    string `json:"role"` // user, assistant
	Content string `json:"content"`
}

// ToolCall is a tool invocation requested by the model. Arguments is the raw
// JSON the provider returned; it is parsed and validated by the caller.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type Response struct {
	Content   string
	ToolCalls []ToolCall
}

type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"` // JSON Schema
}

// Request is one chat completion call.
type Request struct {
	System      string
	Messages    []Message
	Tools       []Tool
	ToolChoice  string // "auto" or "" (provider default)
	Temperature float64
	MaxTokens   int
}

type Client interface {
	Chat(ctx context.Context, req Request) (*Response, error)
}
