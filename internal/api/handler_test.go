package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/chris/focus/internal/agent"
	"github.com/chris/focus/internal/db"
	"github.com/chris/focus/internal/llm"
	"github.com/chris/focus/internal/tools"
)

var fixedNow = time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC)

type fakeClient struct {
	mu      sync.Mutex
	replies []*llm.Response
	err     error
	calls   int
}

func (f *fakeClient) Chat(context.Context, llm.Request) (*llm.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if len(f.replies) == 0 {
		return &llm.Response{Content: "ok"}, nil
	}
	r := f.replies[0]
	f.replies = f.replies[1:]
	return r, nil
}

type testServer struct {
	t      *testing.T
	db     *db.DB
	client *fakeClient
	router http.Handler
	tokens map[string]string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	d, err := db.Open(":memory:", time.UTC)
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { d.Close() })

	client := &fakeClient{}
	now := func() time.Time { return fixedNow }
	o := agent.New(agent.Config{
		Client:   client,
		Store:    d,
		Tools:    tools.NewRegistry(time.Second),
		Location: time.UTC,
		Now:      now,
	})
	h := NewHandler(d, o)
	h.now = now

	s := &testServer{t: t, db: d, client: client, router: h.Router(), tokens: map[string]string{}}
	for _, user := range []string{"alice", "bob"} {
		tok, err := d.CreateToken(context.Background(), user, "test")
		if err != nil {
			t.Fatalf("creating token: %v", err)
		}
		s.tokens[user] = tok
	}
	return s
}

// do sends a request as user (no auth header when user is "") and decodes
// the JSON response into out when out is non-nil.
func (s *testServer) do(user, method, path string, body any, out any) int {
	s.t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		if err := json.NewEncoder(&buf).Encode(b); err != nil {
			s.t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if user != "" {
		req.Header.Set("Authorization", "Bearer "+s.tokens[user])
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	if out != nil && w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
			s.t.Fatalf("%s %s: decoding %q: %v", method, path, w.Body.String(), err)
		}
	}
	return w.Code
}

type envelope[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Error   string `json:"error"`
}

func TestJSON(t *testing.T) {
	w := httptest.NewRecorder()
	JSON(w, http.StatusTeapot, map[string]string{"foo": "bar"})
	if w.Code != http.StatusTeapot || w.Header().Get("Content-Type") != "application/json" {
		t.Errorf("status %d, content type %q", w.Code, w.Header().Get("Content-Type"))
	}
	var got map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil || got["foo"] != "bar" {
		t.Errorf("body = %s, %v", w.Body.String(), err)
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	if code := s.do("", http.MethodGet, "/health", nil, nil); code != http.StatusOK {
		t.Errorf("/health = %d", code)
	}
}

func TestAuthRequired(t *testing.T) {
	s := newTestServer(t)
	if code := s.do("", http.MethodGet, "/api/goals", nil, nil); code != http.StatusUnauthorized {
		t.Errorf("no token = %d, want 401", code)
	}
	s.tokens["mallory"] = "not-a-real-token"
	if code := s.do("mallory", http.MethodGet, "/api/goals", nil, nil); code != http.StatusUnauthorized {
		t.Errorf("bad token = %d, want 401", code)
	}
}

func TestChatRejectsBadRequests(t *testing.T) {
	s := newTestServer(t)
	tests := []struct {
		name string
		body any
		code int
	}{
		{"missing message", map[string]any{}, http.StatusBadRequest},
		{"blank message", map[string]any{"message": "   "}, http.StatusBadRequest},
		{"malformed json", `{"message":`, http.StatusBadRequest},
		{"bad history role", map[string]any{"message": "hi", "conversationHistory": []map[string]string{{"role": "system", "content": "x"}}}, http.StatusBadRequest},
		{"too large", `{"message":"` + strings.Repeat("a", maxRequestBodySize) + `"}`, http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var resp envelope[any]
			if code := s.do("alice", http.MethodPost, "/api/ai/chat", tt.body, &resp); code != tt.code {
				t.Errorf("status = %d, want %d", code, tt.code)
			}
			if resp.Error == "" {
				t.Error("expected an error message")
			}
		})
	}
	if s.client.calls != 0 {
		t.Errorf("provider called %d times, want 0", s.client.calls)
	}
}

func TestChatRunsTurn(t *testing.T) {
	s := newTestServer(t)
	s.client.replies = []*llm.Response{
		{ToolCalls: []llm.ToolCall{{
			ID: "1", Name: "create_goal_with_breakdown",
			Arguments: `{"title":"Get fit","goal_type":"fitness","daily_time_minutes":30}`,
		}}},
		{Content: "Your plan is ready."},
	}

	var reply struct {
		Message   string `json:"message"`
		SessionID string `json:"session_id"`
		ToolCalls []struct {
			Name   string         `json:"name"`
			Params map[string]any `json:"params"`
			Result tools.Result   `json:"result"`
		} `json:"toolCalls"`
	}
	code := s.do("alice", http.MethodPost, "/api/ai/chat", map[string]any{"message": "I want to get fit"}, &reply)
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if reply.Message != "Your plan is ready." || reply.SessionID == "" {
		t.Errorf("reply = %+v", reply)
	}
	if len(reply.ToolCalls) != 1 || reply.ToolCalls[0].Name != "create_goal_with_breakdown" || !reply.ToolCalls[0].Result.Success {
		t.Fatalf("toolCalls = %+v", reply.ToolCalls)
	}
	if reply.ToolCalls[0].Params["goal_type"] != "fitness" {
		t.Errorf("params = %v", reply.ToolCalls[0].Params)
	}

	var sessions envelope[[]db.ChatSession]
	s.do("alice", http.MethodGet, "/api/ai/chat/sessions", nil, &sessions)
	if len(sessions.Data) != 1 || sessions.Data[0].ID != reply.SessionID || sessions.Data[0].MessageCount != 2 {
		t.Errorf("sessions = %+v", sessions.Data)
	}

	var msgs envelope[[]db.ChatMessage]
	s.do("alice", http.MethodGet, "/api/ai/chat/sessions/"+reply.SessionID+"/messages", nil, &msgs)
	if len(msgs.Data) != 2 || msgs.Data[0].Content != "I want to get fit" || msgs.Data[1].Content != reply.Message {
		t.Errorf("messages = %+v", msgs.Data)
	}
	if code := s.do("bob", http.MethodGet, "/api/ai/chat/sessions/"+reply.SessionID+"/messages", nil, nil); code != http.StatusNotFound {
		t.Errorf("bob reading alice's session = %d, want 404", code)
	}
	if code := s.do("alice", http.MethodDelete, "/api/ai/chat/sessions/"+reply.SessionID, nil, nil); code != http.StatusNoContent {
		t.Errorf("delete session = %d", code)
	}
}

func TestChatProviderErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"not configured", &llm.ProviderError{Kind: llm.KindAuth, Err: errors.New("401")}, agent.NotConfiguredMessage},
		{"degraded", errors.New("dial tcp: connection refused"), agent.DegradedMessage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			s.client.err = tt.err
			var resp envelope[any]
			code := s.do("alice", http.MethodPost, "/api/ai/chat", map[string]any{"message": "hello"}, &resp)
			if code != http.StatusInternalServerError || resp.Error != tt.want {
				t.Errorf("got %d %q, want 500 %q", code, resp.Error, tt.want)
			}
		})
	}
}

func TestTaskChatRoute(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	g, _ := s.db.CreateGoal(ctx, "alice", db.GoalInput{Title: "Launch"})
	task, _ := s.db.CreateTask(ctx, "alice", db.TaskInput{GoalID: g.ID, Title: "Write landing page"})
	s.client.replies = []*llm.Response{{Content: "Start with the headline."}}

	if code := s.do("alice", http.MethodPost, "/api/ai/task-chat", map[string]any{"message": "help"}, nil); code != http.StatusBadRequest {
		t.Errorf("missing task_id = %d, want 400", code)
	}
	if code := s.do("bob", http.MethodPost, "/api/ai/task-chat", map[string]any{"message": "help", "task_id": task.ID}, nil); code != http.StatusNotFound {
		t.Errorf("foreign task = %d, want 404", code)
	}
	var resp map[string]string
	if code := s.do("alice", http.MethodPost, "/api/ai/task-chat", map[string]any{"message": "help", "task_id": task.ID}, &resp); code != http.StatusOK {
		t.Fatalf("task chat = %d", code)
	}
	if resp["message"] != "Start with the headline." {
		t.Errorf("message = %q", resp["message"])
	}
}

func TestGoalRoutes(t *testing.T) {
	s := newTestServer(t)

	var created envelope[db.Goal]
	if code := s.do("alice", http.MethodPost, "/api/goals", map[string]any{"title": "Ship v1", "goal_type": "mvp_launch"}, &created); code != http.StatusCreated {
		t.Fatalf("create = %d", code)
	}
	if !created.Success || created.Data.ID == "" || created.Data.UserID != "alice" {
		t.Fatalf("created = %+v", created)
	}
	id := created.Data.ID

	var bad envelope[any]
	if code := s.do("alice", http.MethodPost, "/api/goals", map[string]any{"title": ""}, &bad); code != http.StatusBadRequest {
		t.Errorf("empty title = %d, want 400", code)
	}
	if !strings.Contains(bad.Error, "title") {
		t.Errorf("error = %q", bad.Error)
	}
	if code := s.do("alice", http.MethodPost, "/api/goals", map[string]any{"title": "x", "goal_type": "nap"}, nil); code != http.StatusBadRequest {
		t.Errorf("bad goal_type = %d, want 400", code)
	}

	var updated envelope[db.Goal]
	if code := s.do("alice", http.MethodPatch, "/api/goals/"+id, map[string]any{"title": "Ship v1.1"}, &updated); code != http.StatusOK {
		t.Fatalf("update = %d", code)
	}
	if updated.Data.Title != "Ship v1.1" || updated.Data.GoalType != "mvp_launch" {
		t.Errorf("updated = %+v", updated.Data)
	}

	for _, req := range []struct{ method, path string }{
		{http.MethodGet, "/api/goals/" + id},
		{http.MethodPatch, "/api/goals/" + id},
		{http.MethodDelete, "/api/goals/" + id},
		{http.MethodGet, "/api/goals/" + id + "/tasks"},
	} {
		var body any
		if req.method == http.MethodPatch {
			body = map[string]any{"title": "hijacked"}
		}
		if code := s.do("bob", req.method, req.path, body, nil); code != http.StatusNotFound {
			t.Errorf("bob %s %s = %d, want 404", req.method, req.path, code)
		}
	}

	var list envelope[[]db.Goal]
	s.do("bob", http.MethodGet, "/api/goals", nil, &list)
	if list.Data == nil || len(list.Data) != 0 {
		t.Errorf("bob's goals = %+v, want empty list", list.Data)
	}

	if code := s.do("alice", http.MethodDelete, "/api/goals/"+id, nil, nil); code != http.StatusNoContent {
		t.Errorf("delete = %d", code)
	}
	if code := s.do("alice", http.MethodGet, "/api/goals/"+id, nil, nil); code != http.StatusNotFound {
		t.Errorf("get after delete = %d", code)
	}
}

func TestTaskRoutes(t *testing.T) {
	s := newTestServer(t)
	var goal envelope[db.Goal]
	s.do("alice", http.MethodPost, "/api/goals", map[string]any{"title": "Get fit"}, &goal)

	var task envelope[db.Task]
	code := s.do("alice", http.MethodPost, "/api/tasks", map[string]any{
		"goal_id": goal.Data.ID, "title": "Run", "due_date": "2026-10-19", "is_recurring": true, "cadence": "daily",
	}, &task)
	if code != http.StatusCreated {
		t.Fatalf("create task = %d", code)
	}
	id := task.Data.ID

	if code := s.do("bob", http.MethodPost, "/api/tasks", map[string]any{"goal_id": goal.Data.ID, "title": "Sneak"}, nil); code != http.StatusNotFound {
		t.Errorf("task on foreign goal = %d, want 404", code)
	}
	if code := s.do("alice", http.MethodPost, "/api/tasks", map[string]any{"goal_id": goal.Data.ID, "title": "Lift", "is_recurring": true}, nil); code != http.StatusBadRequest {
		t.Errorf("recurring without cadence = %d, want 400", code)
	}

	var today envelope[[]db.Task]
	s.do("alice", http.MethodGet, "/api/tasks/today", nil, &today)
	if len(today.Data) != 1 || today.Data[0].ID != id {
		t.Errorf("today = %+v", today.Data)
	}

	var done envelope[db.Task]
	if code := s.do("alice", http.MethodPatch, "/api/tasks/"+id+"/complete", nil, &done); code != http.StatusOK {
		t.Fatalf("complete = %d", code)
	}
	if done.Data.CompletedAt == "" {
		t.Error("completed_at not set")
	}
	if code := s.do("bob", http.MethodPatch, "/api/tasks/"+id+"/complete", nil, nil); code != http.StatusNotFound {
		t.Errorf("bob completing = %d, want 404", code)
	}

	var streak envelope[db.Streak]
	s.do("alice", http.MethodGet, "/api/streaks", nil, &streak)
	if streak.Data.CurrentStreak != 1 {
		t.Errorf("streak = %+v", streak.Data)
	}

	var filtered envelope[[]db.Task]
	s.do("alice", http.MethodGet, "/api/tasks?completed=true", nil, &filtered)
	if len(filtered.Data) != 1 {
		t.Errorf("completed filter = %d tasks", len(filtered.Data))
	}
	if code := s.do("alice", http.MethodGet, "/api/tasks?completed=maybe", nil, nil); code != http.StatusBadRequest {
		t.Errorf("bad completed filter = %d", code)
	}
	if code := s.do("alice", http.MethodGet, "/api/tasks?date=today", nil, nil); code != http.StatusBadRequest {
		t.Errorf("bad date filter = %d", code)
	}

	var undone envelope[db.Task]
	s.do("alice", http.MethodPatch, "/api/tasks/"+id+"/uncomplete", nil, &undone)
	if undone.Data.CompletedAt != "" {
		t.Errorf("uncomplete left completed_at = %q", undone.Data.CompletedAt)
	}
	s.do("alice", http.MethodGet, "/api/tasks?completed=false", nil, &filtered)
	if len(filtered.Data) != 1 {
		t.Errorf("pending filter = %d tasks", len(filtered.Data))
	}

	var patched envelope[db.Task]
	s.do("alice", http.MethodPatch, "/api/tasks/"+id, map[string]any{"title": "Run 5k"}, &patched)
	if patched.Data.Title != "Run 5k" || !patched.Data.IsRecurring {
		t.Errorf("patched = %+v", patched.Data)
	}

	if code := s.do("bob", http.MethodDelete, "/api/tasks/"+id, nil, nil); code != http.StatusNotFound {
		t.Errorf("bob delete = %d", code)
	}
	if code := s.do("alice", http.MethodDelete, "/api/tasks/"+id, nil, nil); code != http.StatusNoContent {
		t.Errorf("delete = %d", code)
	}
}

func TestStreakDefaultsToZero(t *testing.T) {
	s := newTestServer(t)
	var streak envelope[db.Streak]
	if code := s.do("bob", http.MethodGet, "/api/streaks", nil, &streak); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if streak.Data.UserID != "bob" || streak.Data.CurrentStreak != 0 {
		t.Errorf("streak = %+v", streak.Data)
	}
}

func TestStreakRecomputedAsOfNow(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	g, err := s.db.CreateGoal(ctx, "alice", db.GoalInput{Title: "ship"})
	if err != nil {
		t.Fatalf("CreateGoal: %v", err)
	}
	task, err := s.db.CreateTask(ctx, "alice", db.TaskInput{GoalID: g.ID, Title: "write"})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if _, err := s.db.CompleteTask(ctx, task.ID, "alice", fixedNow.AddDate(0, 0, -3)); err != nil {
		t.Fatalf("CompleteTask: %v", err)
	}

	var streak envelope[db.Streak]
	if code := s.do("alice", http.MethodGet, "/api/streaks", nil, &streak); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if streak.Data.CurrentStreak != 0 || streak.Data.BestStreak != 1 {
		t.Errorf("a three day gap should break the streak, got %+v", streak.Data)
	}
}

func TestCreateSessionWithoutBody(t *testing.T) {
	s := newTestServer(t)
	var created envelope[db.ChatSession]
	if code := s.do("alice", http.MethodPost, "/api/ai/chat/sessions", nil, &created); code != http.StatusCreated {
		t.Fatalf("status = %d", code)
	}
	if created.Data.ID == "" {
		t.Error("missing session id")
	}
	if code := s.do("alice", http.MethodDelete, fmt.Sprintf("/api/ai/chat/sessions/%s", created.Data.ID), nil, nil); code != http.StatusNoContent {
		t.Errorf("delete = %d", code)
	}
}
