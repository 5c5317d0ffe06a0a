package discord

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/chris/focus/internal/agent"
	"github.com/chris/focus/internal/db"
	"github.com/chris/focus/internal/llm"
)

// --- stripMention ---

func TestStripMention_Standard(t *testing.T) {
	got := stripMention("<@123456> hello", "123456")
	want := " hello"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestStripMention_Nickname(t *testing.T) {
	got := stripMention("<@!123456> hello", "123456")
	want := " hello"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestStripMention_Both(t *testing.T) {
	got := stripMention("<@123> and <@!123>", "123")
	want := " and "
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestStripMention_NoMention(t *testing.T) {
	got := stripMention("just text", "123")
	if got != "just text" {
		t.Errorf("got %q, want %q", got, "just text")
	}
}

func TestStripMention_WrongUser(t *testing.T) {
	input := "<@999> hello"
	got := stripMention(input, "123")
	if got != input {
		t.Errorf("got %q, want %q", got, input)
	}
}

func TestStripMention_Empty(t *testing.T) {
	got := stripMention("", "123")
	if got != "" {
		t.Errorf("got %q, want %q", got, "")
	}
}

// --- splitMessage ---

func TestSplitMessage_Short(t *testing.T) {
	chunks := splitMessage("hello", 2000)
	if len(chunks) != 1 || chunks[0] != "hello" {
		t.Errorf("expected single chunk 'hello', got %v", chunks)
	}
}

func TestSplitMessage_ExactLimit(t *testing.T) {
	s := strings.Repeat("a", 2000)
	chunks := splitMessage(s, 2000)
	if len(chunks) != 1 {
		t.Errorf("expected 1 chunk, got %d", len(chunks))
	}
}

func TestSplitMessage_SplitsAtNewline(t *testing.T) {
	// 15 chars of "a", then newline, then 15 chars of "b" = 31 chars total
	s := strings.Repeat("a", 15) + "\n" + strings.Repeat("b", 15)
	chunks := splitMessage(s, 20)

	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d: %v", len(chunks), chunks)
	}
	// First chunk should split at the newline (16 chars: 15 a's + newline)
	if chunks[0] != strings.Repeat("a", 15)+"\n" {
		t.Errorf("chunk[0] = %q", chunks[0])
	}
	if chunks[1] != strings.Repeat("b", 15) {
		t.Errorf("chunk[1] = %q", chunks[1])
	}
}

func TestSplitMessage_NoNewlineFallback(t *testing.T) {
	// No newlines, should hard-split at maxLen
	s := strings.Repeat("x", 50)
	chunks := splitMessage(s, 20)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if chunks[0] != strings.Repeat("x", 20) {
		t.Errorf("chunk[0] length = %d, want 20", len(chunks[0]))
	}
	if chunks[1] != strings.Repeat("x", 20) {
		t.Errorf("chunk[1] length = %d, want 20", len(chunks[1]))
	}
	if chunks[2] != strings.Repeat("x", 10) {
		t.Errorf("chunk[2] length = %d, want 10", len(chunks[2]))
	}
}

func TestSplitMessage_Empty(t *testing.T) {
	chunks := splitMessage("", 2000)
	if len(chunks) != 1 || chunks[0] != "" {
		t.Errorf("expected single empty chunk, got %v", chunks)
	}
}

func TestSplitMessage_MultipleNewlines(t *testing.T) {
	// Should prefer the LAST newline before the limit
	s := "line1\nline2\nline3\nline4"
	chunks := splitMessage(s, 12)

	// "line1\nline2\n" is 12 chars, should split right there
	if chunks[0] != "line1\nline2\n" {
		t.Errorf("chunk[0] = %q, want %q", chunks[0], "line1\nline2\n")
	}
}

func TestSplitMessage_KeepsRunesWhole(t *testing.T) {
	s := strings.Repeat("é", 15) // 30 bytes
	chunks := splitMessage(s, 7)
	for i, c := range chunks {
		if !utf8.ValidString(c) {
			t.Errorf("chunk[%d] = %q splits a rune", i, c)
		}
		if len(c) > 7 {
			t.Errorf("chunk[%d] is %d bytes", i, len(c))
		}
	}
	if strings.Join(chunks, "") != s {
		t.Error("chunks do not reassemble")
	}
}

// --- reply ---

type fakeClient struct {
	reply string
	err   error

	mu       sync.Mutex
	requests []llm.Request
}

func (f *fakeClient) Chat(_ context.Context, req llm.Request) (*llm.Response, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return &llm.Response{Content: f.reply}, nil
}

func newTestBot(t *testing.T, client llm.Client) (*Bot, *db.DB) {
	t.Helper()
	d, err := db.Open(":memory:", time.UTC)
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	o := agent.New(agent.Config{Client: client, Store: d, Location: time.UTC})
	return &Bot{agent: o, users: d}, d
}

func TestReply_UsesLinkedUserAndLatestSession(t *testing.T) {
	client := &fakeClient{reply: "Let's go."}
	b, d := newTestBot(t, client)
	ctx := context.Background()

	if got := b.reply(ctx, "42", "hello"); got != "Let's go." {
		t.Fatalf("reply = %q", got)
	}
	if got := b.reply(ctx, "42", "again"); got != "Let's go." {
		t.Fatalf("reply = %q", got)
	}

	userID, err := d.LinkedUser(ctx, Provider, "42")
	if err != nil {
		t.Fatal(err)
	}
	sessions, err := d.ListSessions(ctx, userID)
	if err != nil {
		t.Fatal(err)
	}
	if len(sessions) != 1 || sessions[0].MessageCount != 4 {
		t.Errorf("sessions = %+v, want one session with 4 messages", sessions)
	}

	// The second turn carries the first exchange.
	if len(client.requests) != 2 {
		t.Fatalf("made %d requests, want 2", len(client.requests))
	}
	want := []llm.Message{
		{Role: llm.RoleUser, Content: "hello"},
		{Role: llm.RoleAssistant, Content: "Let's go."},
		{Role: llm.RoleUser, Content: "again"},
	}
	got := client.requests[1].Messages
	if len(got) != len(want) {
		t.Fatalf("second turn sent %d messages: %+v", len(got), got)
	}
	for i := range want {
		if got[i].Role != want[i].Role || got[i].Content != want[i].Content {
			t.Errorf("message[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestReply_ProviderFailure(t *testing.T) {
	b, _ := newTestBot(t, &fakeClient{err: &llm.ProviderError{Kind: llm.KindAuth, Err: errors.New("401")}})
	if got := b.reply(context.Background(), "42", "hello"); got != agent.NotConfiguredMessage {
		t.Errorf("reply = %q", got)
	}
}
