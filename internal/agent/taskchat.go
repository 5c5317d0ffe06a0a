package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/chris/focus/internal/llm"
)

const checkInPrompt = "It's the start of my day. Give me a short check-in: what's on today's list, " +
	"how my streak looks, and the one task I should start with."

// TaskChat coaches the user on a single task. It offers no tools and is not
// persisted. The task must belong to userID.
func (o *Orchestrator) TaskChat(ctx context.Context, userID, taskID, message string, history []llm.Message) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", ErrEmptyMessage
	}
	task, err := o.store.GetTask(ctx, taskID, userID)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("You are helping the user make progress on one specific task. Stay on this task, ")
	b.WriteString("break it into a concrete next step and keep replies under a few sentences.\n\n")
	fmt.Fprintf(&b, "TASK: %s\n", task.Title)
	if task.Description != "" {
		fmt.Fprintf(&b, "DETAILS: %s\n", task.Description)
	}
	if goal, err := o.store.GetGoal(ctx, task.GoalID, userID); err == nil {
		fmt.Fprintf(&b, "GOAL: %s\n", goal.Title)
	}
	if task.DueDate != "" {
		fmt.Fprintf(&b, "DUE: %s\n", task.DueDate)
	}
	if task.Completed() {
		b.WriteString("STATUS: completed\n")
	} else {
		b.WriteString("STATUS: pending\n")
	}

	if o.maxContextTokens > 0 {
		budget := max(o.maxContextTokens-llm.EstimateTokens(b.String())-llm.EstimateTokens(message)-taskMaxTokens, minHistoryBudget)
		history = llm.TrimHistory(history, budget)
	}
	messages := append(append([]llm.Message(nil), history...), llm.Message{Role: llm.RoleUser, Content: message})

	resp, err := o.complete(ctx, llm.Request{
		System:      b.String(),
		Messages:    messages,
		Temperature: taskTemperature,
		MaxTokens:   taskMaxTokens,
	})
	if err != nil {
		slog.Error("task chat completion failed", "user_id", userID, "task_id", taskID, "error", err)
		return "", turnError(err)
	}
	if reply := strings.TrimSpace(resp.Content); reply != "" {
		return reply, nil
	}
	return TaskFallbackMessage, nil
}

// CheckIn produces a proactive summary of the user's day. Tools are not
// offered and nothing is persisted.
func (o *Orchestrator) CheckIn(ctx context.Context, userID string) (string, error) {
	snap, err := o.assembler.Snapshot(ctx, userID)
	if err != nil {
		return "", err
	}
	p := o.policy.Select(o.personas, snap.GoalTypes())
	resp, err := o.complete(ctx, llm.Request{
		System:      p.Prompt + "\n\n" + Render(snap, o.listLimit),
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: checkInPrompt}},
		Temperature: chatTemperature,
		MaxTokens:   chatMaxTokens,
	})
	if err != nil {
		return "", turnError(err)
	}
	if reply := strings.TrimSpace(resp.Content); reply != "" {
		return reply, nil
	}
	return FallbackMessage, nil
}
