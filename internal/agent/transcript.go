package agent

import (
	"context"
	"fmt"
	"sync"

	"github.com/chris/focus/internal/db"
	"github.com/chris/focus/internal/llm"
)

// TranscriptStore is the chat side of the persistence gateway.
type TranscriptStore interface {
	GetSession(ctx context.Context, id, userID string) (*db.ChatSession, error)
	LatestSession(ctx context.Context, userID string) (*db.ChatSession, error)
	SessionMessages(ctx context.Context, sessionID, userID string) ([]db.ChatMessage, error)
	AppendMessages(ctx context.Context, sessionID, userID string, msgs []db.ChatMessage) (string, error)
}

// Transcript resolves chat sessions and appends exchanges to them. Appends
// to the same session are serialized so a user message is always followed
// by its own reply.
type Transcript struct {
	store TranscriptStore

	mu    sync.Mutex
	locks map[string]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

func NewTranscript(store TranscriptStore) *Transcript {
	return &Transcript{store: store, locks: make(map[string]*sessionLock)}
}

// Resolve returns the session a turn belongs to. An explicit id is looked
// up; without one the most recent session is used. An empty result means
// a new session should be created on append.
func (t *Transcript) Resolve(ctx context.Context, userID, sessionID string) (string, error) {
	if sessionID != "" {
		s, err := t.store.GetSession(ctx, sessionID, userID)
		if db.IsNotFound(err) {
			return "", nil
		}
		if err != nil {
			return "", err
		}
		return s.ID, nil
	}
	s, err := t.store.LatestSession(ctx, userID)
	if err != nil || s == nil {
		return "", err
	}
	return s.ID, nil
}

// Append writes a user message and the assistant reply, in that order, and
// returns the session id (newly created when sessionID is empty).
func (t *Transcript) Append(ctx context.Context, userID, sessionID, userMsg, assistantMsg string) (string, error) {
	key := sessionID
	if key == "" {
		key = "new:" + userID
	}
	unlock := t.lock(key)
	defer unlock()

	id, err := t.store.AppendMessages(ctx, sessionID, userID, []db.ChatMessage{
		{Role: db.RoleUser, Content: userMsg},
		{Role: db.RoleAssistant, Content: assistantMsg},
	})
	if err != nil {
		return "", fmt.Errorf("appending to session: %w", err)
	}
	return id, nil
}

// History returns a session's messages for replay, oldest first.
func (t *Transcript) History(ctx context.Context, userID, sessionID string) ([]llm.Message, error) {
	msgs, err := t.store.SessionMessages(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	out := make([]llm.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, llm.Message{Role: m.Role, Content: m.Content})
	}
	return out, nil
}

func (t *Transcript) lock(key string) func() {
	t.mu.Lock()
	l := t.locks[key]
	if l == nil {
		l = &sessionLock{}
		t.locks[key] = l
	}
	l.refs++
	t.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		t.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(t.locks, key)
		}
		t.mu.Unlock()
	}
}
