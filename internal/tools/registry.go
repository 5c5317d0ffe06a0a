// Package tools declares the coaching tools offered to the model and
// dispatches tool calls to their executors.
package tools

import (
	"context"
	"sort"
	"time"

	"github.com/chris/focus/internal/db"
	"github.com/chris/focus/internal/llm"
)

// GoalStore is the goal side of the persistence gateway.
type GoalStore interface {
	ListGoals(ctx context.Context, userID string) ([]db.Goal, error)
	GetGoal(ctx context.Context, id, userID string) (*db.Goal, error)
	CreateGoal(ctx context.Context, userID string, in db.GoalInput) (*db.Goal, error)
	CreateGoalWithTasks(ctx context.Context, userID string, in db.GoalInput, tasks []db.TaskInput) (*db.Goal, []db.Task, error)
}

// TaskStore is the task side of the persistence gateway.
type TaskStore interface {
	ListTasks(ctx context.Context, userID string, filter db.TaskFilter) ([]db.Task, error)
	CreateTask(ctx context.Context, userID string, in db.TaskInput) (*db.Task, error)
	CompleteTask(ctx context.Context, id, userID string, at time.Time) (*db.Task, error)
	TodayTasks(ctx context.Context, userID string, today time.Time) ([]db.Task, error)
	TasksForGoal(ctx context.Context, goalID, userID string) ([]db.Task, error)
	CompletedSince(ctx context.Context, userID string, since time.Time) ([]db.Task, error)
}

// StreakStore reads the user's streak.
type StreakStore interface {
	GetStreak(ctx context.Context, userID string) (*db.Streak, error)
}

// ToolContext is the request-scoped state an executor runs against. UserID
// comes from authentication, never from tool arguments.
type ToolContext struct {
	UserID   string
	Goals    GoalStore
	Tasks    TaskStore
	Streaks  StreakStore
	Now      func() time.Time
	Location *time.Location
}

// now returns the current time in the user's calendar.
func (tc ToolContext) now() time.Time {
	now := time.Now
	if tc.Now != nil {
		now = tc.Now
	}
	loc := tc.Location
	if loc == nil {
		loc = time.Local
	}
	return now().In(loc)
}

// Tool is a callable tool.
type Tool struct {
	Name        string
	Description string
	Schema      Schema
	Exec        func(ctx context.Context, args Args, tc ToolContext) (*Result, error)
}

// Definition renders the tool for a completion provider.
func (t *Tool) Definition() llm.Tool {
	return llm.Tool{Name: t.Name, Description: t.Description, Parameters: t.Schema.JSON()}
}

// Registry holds available tools.
type Registry struct {
	tools   map[string]*Tool
	timeout time.Duration
}

// NewRegistry creates a registry with the built-in coaching tools. timeout
// bounds each executor call; zero disables it.
func NewRegistry(timeout time.Duration) *Registry {
	r := &Registry{tools: make(map[string]*Tool), timeout: timeout}
	r.registerGoalTools()
	r.registerTaskTools()
	r.registerMetricsTools()
	return r
}

// Register adds a tool, replacing any tool with the same name.
func (r *Registry) Register(t *Tool) {
	r.tools[t.Name] = t
}

// Get retrieves a tool by name.
func (r *Registry) Get(name string) *Tool {
	return r.tools[name]
}

// Names returns the registered tool names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Definitions returns provider tool definitions for the named tools, or for
// every tool when names is empty. Unknown names are skipped.
func (r *Registry) Definitions(names ...string) []llm.Tool {
	if len(names) == 0 {
		names = r.Names()
	}
	defs := make([]llm.Tool, 0, len(names))
	for _, name := range names {
		if t := r.tools[name]; t != nil {
			defs = append(defs, t.Definition())
		}
	}
	return defs
}

// Dispatch validates args against the tool's schema and runs its executor.
// Failures are returned as *ErrToolUnavailable, *ValidationError or
// *ExecError.
func (r *Registry) Dispatch(ctx context.Context, name string, args Args, tc ToolContext) (*Result, error) {
	t := r.tools[name]
	if t == nil {
		return nil, &ErrToolUnavailable{ToolName: name}
	}
	if err := t.Schema.Validate(name, args); err != nil {
		return nil, err
	}
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	res, err := t.Exec(ctx, args, tc)
	if err != nil {
		return nil, execError(ctx, name, err)
	}
	return res, nil
}
