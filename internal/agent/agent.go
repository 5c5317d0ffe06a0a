// Package agent runs coaching turns: it assembles the user's context, calls
// the model with the coaching tools, executes the tool calls it asks for
// and narrates the results.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/chris/focus/config"
	"github.com/chris/focus/internal/db"
	"github.com/chris/focus/internal/llm"
	"github.com/chris/focus/internal/persona"
	"github.com/chris/focus/internal/tools"
)

const (
	chatTemperature = 0.7
	chatMaxTokens   = 500
	taskTemperature = 0.8
	taskMaxTokens   = 250

	// minHistoryBudget leaves room for at least the latest exchange when
	// the prompt is large.
	minHistoryBudget = 500
)

// Store is everything a turn reads or writes. *db.DB satisfies it.
type Store interface {
	tools.GoalStore
	tools.TaskStore
	tools.StreakStore
	TranscriptStore
	GetTask(ctx context.Context, id, userID string) (*db.Task, error)
}

// Config wires an Orchestrator.
type Config struct {
	Client           llm.Client
	Store            Store
	Tools            *tools.Registry
	Personas         *persona.Registry
	Policy           persona.Policy
	Narrator         Narrator // nil narrates with Client
	LLMTimeout       time.Duration
	MaxContextTokens int
	ListLimit        int
	Location         *time.Location
	Now              func() time.Time
}

// Orchestrator runs coaching turns.
type Orchestrator struct {
	client     llm.Client
	store      Store
	tools      *tools.Registry
	personas   *persona.Registry
	policy     persona.Policy
	narrator   Narrator
	assembler  *Assembler
	transcript *Transcript

	llmTimeout       time.Duration
	maxContextTokens int
	listLimit        int
	loc              *time.Location
	now              func() time.Time
}

func New(cfg Config) *Orchestrator {
	if cfg.Tools == nil {
		cfg.Tools = tools.NewRegistry(0)
	}
	if cfg.Personas == nil {
		cfg.Personas = persona.Default()
	}
	if cfg.Policy == nil {
		cfg.Policy = persona.Static{ID: persona.AppBuilder.ID}
	}
	if cfg.Narrator == nil {
		cfg.Narrator = LLMNarrator{Client: cfg.Client, Timeout: cfg.LLMTimeout}
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Orchestrator{
		client:           cfg.Client,
		store:            cfg.Store,
		tools:            cfg.Tools,
		personas:         cfg.Personas,
		policy:           cfg.Policy,
		narrator:         cfg.Narrator,
		assembler:        NewAssembler(cfg.Store, cfg.Location, cfg.Now),
		transcript:       NewTranscript(cfg.Store),
		llmTimeout:       cfg.LLMTimeout,
		maxContextTokens: cfg.MaxContextTokens,
		listLimit:        cfg.ListLimit,
		loc:              cfg.Location,
		now:              cfg.Now,
	}
}

// Turn is one inbound chat message. History, when empty, is replayed from
// the session.
type Turn struct {
	UserID    string
	Message   string
	SessionID string
	History   []llm.Message
}

// ToolCallRecord is the audit entry of one executed tool call.
type ToolCallRecord struct {
	Name   string        `json:"name"`
	Params tools.Args    `json:"params"`
	Result *tools.Result `json:"result"`
}

// Reply is the outcome of a turn. SessionID is empty when the exchange
// could not be persisted.
type Reply struct {
	Message   string           `json:"message"`
	SessionID string           `json:"session_id,omitempty"`
	ToolCalls []ToolCallRecord `json:"toolCalls,omitempty"`
	PersonaID string           `json:"persona_id,omitempty"`
}

// Transcript exposes the orchestrator's transcript store.
func (o *Orchestrator) Transcript() *Transcript {
	return o.transcript
}

// Run executes one chat turn. A first completion failure is returned as a
// *TurnError; everything after it degrades instead of failing.
func (o *Orchestrator) Run(ctx context.Context, turn Turn) (*Reply, error) {
	message := strings.TrimSpace(turn.Message)
	if message == "" {
		return nil, ErrEmptyMessage
	}

	snap, err := o.assembler.Snapshot(ctx, turn.UserID)
	if err != nil {
		slog.Error("assembling context", "user_id", turn.UserID, "error", err)
		return nil, turnError(err)
	}
	p := o.policy.Select(o.personas, snap.GoalTypes())
	system := p.Prompt + "\n\n" + Render(snap, o.listLimit)
	defs := o.tools.Definitions(p.Tools...)

	history := turn.History
	if len(history) == 0 && turn.SessionID != "" {
		history, err = o.transcript.History(ctx, turn.UserID, turn.SessionID)
		if err != nil && !db.IsNotFound(err) {
			slog.Warn("replaying session history", "session_id", turn.SessionID, "error", err)
		}
	}
	history = o.trimHistory(system, defs, message, history)
	messages := append(slices.Clone(history), llm.Message{Role: llm.RoleUser, Content: message})

	resp, err := o.complete(ctx, llm.Request{
		System:      system,
		Messages:    messages,
		Tools:       defs,
		ToolChoice:  "auto",
		Temperature: chatTemperature,
		MaxTokens:   chatMaxTokens,
	})
	if err != nil {
		slog.Error("first completion failed", "user_id", turn.UserID, "persona", p.ID, "error", err)
		return nil, turnError(err)
	}

	reply := &Reply{PersonaID: p.ID}
	content := strings.TrimSpace(resp.Content)

	if len(resp.ToolCalls) > 0 {
		reply.ToolCalls = o.executeTools(ctx, turn.UserID, p.Tools, resp.ToolCalls)
		narrated, err := o.narrator.Narrate(ctx, Narration{
			System:      system,
			UserMessage: message,
			FirstPass:   content,
			Calls:       reply.ToolCalls,
		})
		switch {
		case err != nil:
			slog.Warn("narration failed, keeping first pass", "user_id", turn.UserID, "error", err)
		case narrated != "":
			content = narrated
		}
	}
	if content == "" {
		content = FallbackMessage
	}
	reply.Message = content
	reply.SessionID = o.persist(ctx, turn.UserID, turn.SessionID, message, content)
	return reply, nil
}

// executeTools runs tool calls one at a time in the order the model
// returned them. A failing call becomes a tool_error record and never stops
// the calls after it.
func (o *Orchestrator) executeTools(ctx context.Context, userID string, allowed []string, calls []llm.ToolCall) []ToolCallRecord {
	tc := o.toolContext(userID)
	records := make([]ToolCallRecord, 0, len(calls))
	for _, call := range calls {
		slog.Log(ctx, config.LevelTrace, "tool call arguments", "tool", call.Name, "arguments", call.Arguments)
		rec := ToolCallRecord{Name: call.Name, Params: tools.Args{}}
		args, err := tools.ParseArgs(call.Name, call.Arguments)
		if err == nil {
			rec.Params = args
			if !slices.Contains(allowed, call.Name) {
				err = &tools.ErrToolUnavailable{ToolName: call.Name}
			} else {
				rec.Result, err = o.tools.Dispatch(ctx, call.Name, args, tc)
			}
		}
		if err != nil {
			slog.Warn("tool call failed", "tool", call.Name, "user_id", userID, "error", err)
			rec.Result = tools.ErrorResult(call.Name, err)
		} else {
			slog.Info("tool call", "tool", call.Name, "user_id", userID, "action", rec.Result.Action)
		}
		records = append(records, rec)
	}
	return records
}

func (o *Orchestrator) toolContext(userID string) tools.ToolContext {
	return tools.ToolContext{
		UserID:   userID,
		Goals:    o.store,
		Tasks:    o.store,
		Streaks:  o.store,
		Now:      o.now,
		Location: o.loc,
	}
}

// persist stores the exchange. Failures are logged and reported as an
// empty session id.
func (o *Orchestrator) persist(ctx context.Context, userID, sessionID, userMsg, reply string) string {
	ctx = context.WithoutCancel(ctx)
	resolved, err := o.transcript.Resolve(ctx, userID, sessionID)
	if err != nil {
		slog.Error("resolving chat session", "user_id", userID, "error", err)
		return ""
	}
	id, err := o.transcript.Append(ctx, userID, resolved, userMsg, reply)
	if err != nil {
		slog.Error("persisting chat", "user_id", userID, "session_id", resolved, "error", err)
		return ""
	}
	return id
}

func (o *Orchestrator) trimHistory(system string, defs []llm.Tool, message string, history []llm.Message) []llm.Message {
	if o.maxContextTokens <= 0 || len(history) == 0 {
		return history
	}
	fixed := llm.EstimateRequestTokens(llm.Request{
		System:   system,
		Messages: []llm.Message{{Role: llm.RoleUser, Content: message}},
		Tools:    defs,
	}) + chatMaxTokens
	budget := max(o.maxContextTokens-fixed, minHistoryBudget)
	trimmed := llm.TrimHistory(history, budget)
	if len(trimmed) < len(history) {
		slog.Debug("history trimmed", "from", len(history), "to", len(trimmed))
	}
	return trimmed
}

func (o *Orchestrator) complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	if o.client == nil {
		return nil, &llm.ProviderError{Kind: llm.KindAuth, Err: fmt.Errorf("no completion provider configured")}
	}
	if o.llmTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.llmTimeout)
		defer cancel()
	}
	resp, err := o.client.Chat(ctx, req)
	if err != nil {
		return nil, llm.Classify(err)
	}
	return resp, nil
}
