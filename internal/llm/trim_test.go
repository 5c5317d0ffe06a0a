package llm

import (
	"strings"
	"testing"
)

func TestTrimHistory_UnderBudget(t *testing.T) {
	msgs := []Message{
		{Role: "user", Content: "hello"},
		{Role: "assistant", Content: "hi"},
	}
	got := TrimHistory(msgs, 100000)
	if len(got) != 2 {
		t.Errorf("expected 2 messages unchanged, got %d", len(got))
	}
}

func TestTrimHistory_Empty(t *testing.T) {
	if got := TrimHistory(nil, 100); len(got) != 0 {
		t.Errorf("expected 0 messages, got %d", len(got))
	}
}

func TestTrimHistory_DropsOldestFirst(t *testing.T) {
	msgs := []Message{
		{Role: "user", Content: "first question"},
		{Role: "assistant", Content: "first answer"},
		{Role: "user", Content: "second question"},
		{Role: "assistant", Content: "second answer"},
		{Role: "user", Content: "third question"},
		{Role: "assistant", Content: "third answer"},
	}

	got := TrimHistory(msgs, EstimateMessagesTokens(msgs[2:]))
	if len(got) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(got))
	}
	if got[0].Content != "second question" {
		t.Errorf("expected history to start at 'second question', got %q", got[0].Content)
	}
	if got[len(got)-1].Content != "third answer" {
		t.Errorf("expected last message to be 'third answer', got %q", got[len(got)-1].Content)
	}
}

func TestTrimHistory_NeverStartsWithAssistant(t *testing.T) {
	msgs := []Message{
		{Role: "user", Content: "q1"},
		{Role: "assistant", Content: strings.Repeat("long answer ", 50)},
		{Role: "user", Content: "q2"},
		{Role: "assistant", Content: "a2"},
	}
	got := TrimHistory(msgs, EstimateMessagesTokens(msgs[1:])-1)
	if got[0].Role != "user" {
		t.Errorf("expected trimmed history to start with a user message, got %q", got[0].Role)
	}
}

func TestTrimHistory_AlwaysKeepsLastExchange(t *testing.T) {
	msgs := []Message{
		{Role: "user", Content: strings.Repeat("x", 1000)},
		{Role: "assistant", Content: strings.Repeat("y", 1000)},
	}
	got := TrimHistory(msgs, 1)
	if len(got) != 2 {
		t.Errorf("expected the only exchange to be kept, got %d messages", len(got))
	}
}

func TestGroupExchanges(t *testing.T) {
	msgs := []Message{
		{Role: "assistant", Content: "welcome back"},
		{Role: "user", Content: "a"},
		{Role: "assistant", Content: "b"},
		{Role: "user", Content: "c"},
	}
	groups := groupExchanges(msgs)
	if len(groups) != 3 {
		t.Fatalf("expected 3 groups, got %d", len(groups))
	}
	if len(groups[1].messages) != 2 {
		t.Errorf("expected user+assistant exchange, got %d messages", len(groups[1].messages))
	}
}
