package tools

import (
	"context"
	"slices"

	"github.com/chris/focus/internal/db"
)

var titleProp = Property{Type: "string", MinLength: 1, MaxLength: 255}

func (r *Registry) registerGoalTools() {
	r.Register(&Tool{
		Name:        "create_goal",
		Description: "Create a basic goal for the user. Prefer create_goal_with_breakdown when the user has committed to daily time.",
		Schema: Schema{
			Properties: map[string]Property{
				"title":       withDesc(titleProp, "Short goal title"),
				"description": {Type: "string", Description: "Optional details"},
				"target_date": {Type: "string", Format: "date", Description: "Optional target date, YYYY-MM-DD"},
				"goal_type":   {Type: "string", Enum: db.GoalTypes, Description: "Optional goal category"},
			},
			Required: []string{"title"},
		},
		Exec: createGoal,
	})

	r.Register(&Tool{
		Name:        "create_goal_with_breakdown",
		Description: "Create a goal and automatically generate a time-based task plan (daily, weekly and milestone tasks) for the given goal type and daily time commitment.",
		Schema: Schema{
			Properties: map[string]Property{
				"title":              withDesc(titleProp, "Short goal title"),
				"daily_time_minutes": {Type: "integer", Minimum: bound(15), Maximum: bound(480), Description: "Minutes per day the user commits, 15 to 480"},
				"goal_type":          {Type: "string", Enum: db.GoalTypes, Description: "Goal category that selects the task template"},
				"description":        {Type: "string", Description: "Optional details"},
				"target_date":        {Type: "string", Format: "date", Description: "Optional target date, YYYY-MM-DD"},
			},
			Required: []string{"title", "daily_time_minutes", "goal_type"},
		},
		Exec: createGoalWithBreakdown,
	})

	r.Register(&Tool{
		Name:        "get_goal_tasks",
		Description: "List the existing tasks of one goal. Check this before creating tasks to avoid duplicates.",
		Schema: Schema{
			Properties: map[string]Property{
				"goal_id": {Type: "string", Format: "uuid", Description: "Goal ID from the context"},
			},
			Required: []string{"goal_id"},
		},
		Exec: getGoalTasks,
	})
}

func withDesc(p Property, desc string) Property {
	p.Description = desc
	return p
}

func createGoal(ctx context.Context, args Args, tc ToolContext) (*Result, error) {
	goal, err := tc.Goals.CreateGoal(ctx, tc.UserID, db.GoalInput{
		Title:       args.String("title"),
		Description: args.String("description"),
		TargetDate:  args.String("target_date"),
		GoalType:    args.String("goal_type"),
	})
	if err != nil {
		return nil, err
	}

	goals, err := tc.Goals.ListGoals(ctx, tc.UserID)
	if err != nil {
		return nil, err
	}
	tasks, err := tc.Tasks.ListTasks(ctx, tc.UserID, db.TaskFilter{})
	if err != nil {
		return nil, err
	}
	completed := countCompleted(tasks)

	return ok("goal_created", map[string]any{
		"goal": goal,
		"user_context": map[string]any{
			"total_goals":        len(goals),
			"total_tasks":        len(tasks),
			"completed_tasks":    completed,
			"is_first_goal":      len(goals) == 1,
			"is_entrepreneurial": slices.Contains(EntrepreneurialGoalTypes, goal.GoalType),
		},
	}), nil
}

func createGoalWithBreakdown(ctx context.Context, args Args, tc ToolContext) (*Result, error) {
	goalType := args.String("goal_type")
	plan, err := Breakdown(goalType, args.Int("daily_time_minutes"), tc.now())
	if err != nil {
		return nil, &ValidationError{Tool: "create_goal_with_breakdown", Field: "goal_type", Reason: err.Error()}
	}

	goal, tasks, err := tc.Goals.CreateGoalWithTasks(ctx, tc.UserID, db.GoalInput{
		Title:       args.String("title"),
		Description: args.String("description"),
		TargetDate:  args.String("target_date"),
		GoalType:    goalType,
	}, plan)
	if err != nil {
		return nil, err
	}

	var dailyN, weeklyN, milestoneN int
	for _, t := range tasks {
		switch {
		case !t.IsRecurring:
			milestoneN++
		case t.Cadence == "daily":
			dailyN++
		default:
			weeklyN++
		}
	}
	goals, err := tc.Goals.ListGoals(ctx, tc.UserID)
	if err != nil {
		return nil, err
	}

	return ok("goal_with_breakdown_created", map[string]any{
		"goal":               goal,
		"tasks":              tasks,
		"daily_time_minutes": args.Int("daily_time_minutes"),
		"user_context": map[string]any{
			"daily_tasks":        dailyN,
			"weekly_tasks":       weeklyN,
			"milestone_tasks":    milestoneN,
			"total_tasks":        len(tasks),
			"is_entrepreneurial": slices.Contains(EntrepreneurialGoalTypes, goalType),
			"is_first_goal":      len(goals) == 1,
		},
	}), nil
}

func getGoalTasks(ctx context.Context, args Args, tc ToolContext) (*Result, error) {
	goalID := args.String("goal_id")
	goal, err := tc.Goals.GetGoal(ctx, goalID, tc.UserID)
	if err != nil {
		return nil, err
	}
	tasks, err := tc.Tasks.TasksForGoal(ctx, goalID, tc.UserID)
	if err != nil {
		return nil, err
	}
	completed := countCompleted(tasks)
	return ok("goal_tasks_retrieved", map[string]any{
		"goal":  goal,
		"tasks": tasks,
		"user_context": map[string]any{
			"total":     len(tasks),
			"completed": completed,
			"pending":   len(tasks) - completed,
		},
	}), nil
}
