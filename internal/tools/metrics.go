package tools

import (
	"context"
	"sort"
	"time"

	"github.com/chris/focus/internal/db"
)

func (r *Registry) registerMetricsTools() {
	r.Register(&Tool{
		Name:        "get_progress_metrics",
		Description: "Analyze the user's progress: completion rates, category balance, customer contact frequency, weakest area and streak.",
		Schema: Schema{
			Properties: map[string]Property{
				"days": {Type: "integer", Minimum: bound(1), Maximum: bound(90), Description: "Window in days for recent figures, default 7"},
			},
		},
		Exec: getProgressMetrics,
	})
}

func getProgressMetrics(ctx context.Context, args Args, tc ToolContext) (*Result, error) {
	days := args.Int("days")
	if days == 0 {
		days = 7
	}
	now := tc.now()
	since := time.Date(now.Year(), now.Month(), now.Day()-(days-1), 0, 0, 0, 0, now.Location())

	all, err := tc.Tasks.ListTasks(ctx, tc.UserID, db.TaskFilter{})
	if err != nil {
		return nil, err
	}
	today, err := tc.Tasks.TodayTasks(ctx, tc.UserID, now)
	if err != nil {
		return nil, err
	}
	recent, err := tc.Tasks.CompletedSince(ctx, tc.UserID, since)
	if err != nil {
		return nil, err
	}
	streak, err := tc.Streaks.GetStreak(ctx, tc.UserID)
	if err != nil {
		return nil, err
	}

	// Tasks due inside the window, for a windowed completion rate.
	sinceDate, todayDate := since.Format("2006-01-02"), now.Format("2006-01-02")
	var dueInWindow []db.Task
	for _, t := range all {
		if t.DueDate != "" && t.DueDate >= sinceDate && t.DueDate <= todayDate {
			dueInWindow = append(dueInWindow, t)
		}
	}

	type tally struct{ total, done int }
	byCategory := make(map[string]*tally)
	for _, t := range all {
		c := CategoryOf(t)
		if byCategory[c] == nil {
			byCategory[c] = &tally{}
		}
		byCategory[c].total++
		if t.Completed() {
			byCategory[c].done++
		}
	}
	categories := make([]string, 0, len(byCategory))
	for c := range byCategory {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	counts := make(map[string]any, len(categories))
	weakest, weakestRate := "", 101
	for _, c := range categories {
		t := byCategory[c]
		rate := Percent(t.done, t.total)
		counts[c] = map[string]any{"total": t.total, "completed": t.done, "completion_rate": rate}
		if c != "other" && rate < weakestRate {
			weakest, weakestRate = c, rate
		}
	}

	customerContacts := 0
	for _, t := range recent {
		if CategoryOf(t) == "customer" {
			customerContacts++
		}
	}

	streakData := map[string]any{"current": 0, "best": 0}
	if streak != nil {
		streakData = map[string]any{"current": streak.CurrentStreak, "best": streak.BestStreak, "last_activity": streak.LastActivity}
	}

	todayDone := countCompleted(today)
	allDone := countCompleted(all)
	return ok("metrics_analyzed", map[string]any{
		"window_days": days,
		"user_context": map[string]any{
			"performance_summary": map[string]any{
				"today_completion_rate":   Percent(todayDone, len(today)),
				"window_completion_rate":  Percent(countCompleted(dueInWindow), len(dueInWindow)),
				"overall_completion_rate": Percent(allDone, len(all)),
				"completed_in_window":     len(recent),
				"total_tasks":             len(all),
			},
			"business_health": map[string]any{
				"customer_contact_frequency": float64(customerContacts) / float64(days),
				"customer_contacts":          customerContacts,
			},
			"category_counts": counts,
			"weakest_area":    weakest,
			"streak":          streakData,
		},
	}), nil
}
