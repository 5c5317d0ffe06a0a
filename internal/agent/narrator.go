package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/chris/focus/internal/llm"
)

// Narration is the input to the second pass: the first request's prompt,
// the user message, the provisional reply and what the tools did.
type Narration struct {
	System      string
	UserMessage string
	FirstPass   string
	Calls       []ToolCallRecord
}

// Narrator turns raw tool results into the final reply.
type Narrator interface {
	Narrate(ctx context.Context, n Narration) (string, error)
}

const (
	narrateTemperature = 0.8
	narrateMaxTokens   = 400
)

// LLMNarrator narrates with a second completion call, without tools.
type LLMNarrator struct {
	Client  llm.Client
	Timeout time.Duration
}

func (n LLMNarrator) Narrate(ctx context.Context, in Narration) (string, error) {
	results, err := json.MarshalIndent(in.Calls, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding tool results: %w", err)
	}
	followUp := "Tool results for this turn:\n" + string(results) +
		"\n\nUsing these results and the user's context, write your reply to the user. " +
		"Do not mention tool names, IDs or error details."

	messages := []llm.Message{{Role: llm.RoleUser, Content: in.UserMessage}}
	if in.FirstPass != "" {
		messages = append(messages,
			llm.Message{Role: llm.RoleAssistant, Content: in.FirstPass},
			llm.Message{Role: llm.RoleUser, Content: followUp},
		)
	} else {
		messages[0].Content += "\n\n" + followUp
	}

	if n.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.Timeout)
		defer cancel()
	}
	resp, err := n.Client.Chat(ctx, llm.Request{
		System:      in.System,
		Messages:    messages,
		Temperature: narrateTemperature,
		MaxTokens:   narrateMaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("narrating tool results: %w", err)
	}
	return strings.TrimSpace(resp.Content), nil
}
