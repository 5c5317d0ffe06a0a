package tools

import (
	"context"
	"math"
	"time"

	"github.com/chris/focus/internal/db"
)

func (r *Registry) registerTaskTools() {
	r.Register(&Tool{
		Name:        "create_task",
		Description: "Add a task to one of the user's goals. Check get_goal_tasks first to avoid duplicates.",
		Schema: Schema{
			Properties: map[string]Property{
				"goal_id":      {Type: "string", Format: "uuid", Description: "Goal ID from the context"},
				"title":        withDesc(titleProp, "Specific, actionable task title"),
				"description":  {Type: "string", Description: "Optional details"},
				"due_date":     {Type: "string", Format: "date", Description: "Optional due date, YYYY-MM-DD"},
				"is_recurring": {Type: "boolean", Description: "Whether the task repeats"},
				"cadence":      {Type: "string", Enum: db.Cadences, Description: "Required when is_recurring is true"},
				"category":     {Type: "string", Enum: db.Categories, Description: "Optional task category"},
			},
			Required: []string{"goal_id", "title"},
		},
		Exec: createTask,
	})

	r.Register(&Tool{
		Name:        "complete_task",
		Description: "Mark one of the user's tasks as completed.",
		Schema: Schema{
			Properties: map[string]Property{
				"task_id": {Type: "string", Format: "uuid", Description: "Task ID from the context"},
			},
			Required: []string{"task_id"},
		},
		Exec: completeTask,
	})

	r.Register(&Tool{
		Name:        "get_today_tasks",
		Description: "Get the tasks due today with completion figures.",
		Schema:      Schema{Properties: map[string]Property{}},
		Exec:        getTodayTasks,
	})
}

// Percent returns a/b as an integer percentage, 0 when b is 0.
func Percent(a, b int) int {
	if b == 0 {
		return 0
	}
	return int(math.Round(100 * float64(a) / float64(b)))
}

func countCompleted(tasks []db.Task) int {
	n := 0
	for _, t := range tasks {
		if t.Completed() {
			n++
		}
	}
	return n
}

func createTask(ctx context.Context, args Args, tc ToolContext) (*Result, error) {
	goalID := args.String("goal_id")
	task, err := tc.Tasks.CreateTask(ctx, tc.UserID, db.TaskInput{
		GoalID:      goalID,
		Title:       args.String("title"),
		Description: args.String("description"),
		DueDate:     args.String("due_date"),
		IsRecurring: args.Bool("is_recurring"),
		Cadence:     args.String("cadence"),
		Category:    args.String("category"),
	})
	if err != nil {
		return nil, err
	}

	forGoal, err := tc.Tasks.TasksForGoal(ctx, goalID, tc.UserID)
	if err != nil {
		return nil, err
	}
	today, err := tc.Tasks.TodayTasks(ctx, tc.UserID, tc.now())
	if err != nil {
		return nil, err
	}

	return ok("task_created", map[string]any{
		"task": task,
		"user_context": map[string]any{
			"tasks_for_goal":         len(forGoal),
			"is_first_task_for_goal": len(forGoal) == 1,
			"pending_today":          len(today) - countCompleted(today),
		},
	}), nil
}

func completeTask(ctx context.Context, args Args, tc ToolContext) (*Result, error) {
	now := tc.now()
	task, err := tc.Tasks.CompleteTask(ctx, args.String("task_id"), tc.UserID, now)
	if err != nil {
		return nil, err
	}

	today, err := tc.Tasks.TodayTasks(ctx, tc.UserID, now)
	if err != nil {
		return nil, err
	}
	weekStart := time.Date(now.Year(), now.Month(), now.Day()-6, 0, 0, 0, 0, now.Location())
	recent, err := tc.Tasks.CompletedSince(ctx, tc.UserID, weekStart)
	if err != nil {
		return nil, err
	}

	done := countCompleted(today)
	category := CategoryOf(*task)
	return ok("task_completed", map[string]any{
		"task": task,
		"user_context": map[string]any{
			"today_progress": map[string]any{
				"completed":       done,
				"total":           len(today),
				"completion_rate": Percent(done, len(today)),
			},
			"recent_performance": map[string]any{
				"completed_last_7_days": len(recent),
			},
			"task_analysis": map[string]any{
				"category":            category,
				"is_customer_related": category == "customer",
				"is_revenue_related":  category == "revenue",
				"is_shipping_related": category == "shipping",
			},
		},
	}), nil
}

func getTodayTasks(ctx context.Context, _ Args, tc ToolContext) (*Result, error) {
	today, err := tc.Tasks.TodayTasks(ctx, tc.UserID, tc.now())
	if err != nil {
		return nil, err
	}
	done := countCompleted(today)
	return ok("today_tasks_retrieved", map[string]any{
		"tasks": today,
		"date":  tc.now().Format("2006-01-02"),
		"user_context": map[string]any{
			"total":              len(today),
			"completed":          done,
			"pending":            len(today) - done,
			"completion_rate":    Percent(done, len(today)),
			"category_breakdown": categoryBreakdown(today),
			"has_no_tasks":       len(today) == 0,
			"all_tasks_done":     len(today) > 0 && done == len(today),
		},
	}), nil
}
