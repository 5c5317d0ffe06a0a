package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/chris/focus/internal/db"
	"github.com/chris/focus/internal/tools"
)

// SnapshotStore is what the assembler reads.
type SnapshotStore interface {
	ListGoals(ctx context.Context, userID string) ([]db.Goal, error)
	ListTasks(ctx context.Context, userID string, filter db.TaskFilter) ([]db.Task, error)
	GetStreak(ctx context.Context, userID string) (*db.Streak, error)
}

// Snapshot is the user's state at the start of a turn.
type Snapshot struct {
	Today          string
	Goals          []db.Goal
	Tasks          []db.Task
	Completed      []db.Task
	TodayTasks     []db.Task
	TodayCompleted []db.Task
	TodayPending   []db.Task
	Streak         *db.Streak
}

// GoalTypes returns the distinct goal types of the user's goals.
func (s *Snapshot) GoalTypes() []string {
	seen := make(map[string]bool)
	var out []string
	for _, g := range s.Goals {
		if g.GoalType != "" && !seen[g.GoalType] {
			seen[g.GoalType] = true
			out = append(out, g.GoalType)
		}
	}
	return out
}

// Assembler gathers and renders the user context injected into the system
// prompt.
type Assembler struct {
	store SnapshotStore
	loc   *time.Location
	now   func() time.Time
}

func NewAssembler(store SnapshotStore, loc *time.Location, now func() time.Time) *Assembler {
	if loc == nil {
		loc = time.Local
	}
	if now == nil {
		now = time.Now
	}
	return &Assembler{store: store, loc: loc, now: now}
}

// Snapshot fetches goals, tasks and streak concurrently and partitions the
// tasks around today's calendar date.
func (a *Assembler) Snapshot(ctx context.Context, userID string) (*Snapshot, error) {
	s := &Snapshot{Today: a.now().In(a.loc).Format("2006-01-02")}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		s.Goals, err = a.store.ListGoals(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		s.Tasks, err = a.store.ListTasks(gctx, userID, db.TaskFilter{})
		return err
	})
	g.Go(func() (err error) {
		s.Streak, err = a.store.GetStreak(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("assembling context: %w", err)
	}

	for _, t := range s.Tasks {
		if t.Completed() {
			s.Completed = append(s.Completed, t)
		}
		if t.DueDate != s.Today {
			continue
		}
		s.TodayTasks = append(s.TodayTasks, t)
		if t.Completed() {
			s.TodayCompleted = append(s.TodayCompleted, t)
		} else {
			s.TodayPending = append(s.TodayPending, t)
		}
	}
	return s, nil
}

// Render formats the snapshot as the context block of the system prompt.
// Each list shows at most limit items followed by a "+K more" line.
func Render(s *Snapshot, limit int) string {
	var b strings.Builder

	current, best := 0, 0
	if s.Streak != nil {
		current, best = s.Streak.CurrentStreak, s.Streak.BestStreak
	}
	fmt.Fprintf(&b, "CURRENT USER STATUS (today is %s):\n", s.Today)
	fmt.Fprintf(&b, "- Goals: %d\n", len(s.Goals))
	fmt.Fprintf(&b, "- Streak: %d days (best %d)\n", current, best)
	fmt.Fprintf(&b, "- Tasks: %d total, %d completed (%d%%)\n",
		len(s.Tasks), len(s.Completed), tools.Percent(len(s.Completed), len(s.Tasks)))
	fmt.Fprintf(&b, "- Today: %d of %d completed (%d%%), %d pending\n",
		len(s.TodayCompleted), len(s.TodayTasks), tools.Percent(len(s.TodayCompleted), len(s.TodayTasks)), len(s.TodayPending))

	b.WriteString("\nACTIVE GOALS:\n")
	if len(s.Goals) == 0 {
		b.WriteString("- None yet\n")
	}
	writeCapped(&b, len(s.Goals), limit, func(i int) string {
		g := s.Goals[i]
		desc := g.Description
		if desc == "" {
			desc = "No description"
		}
		line := fmt.Sprintf("- %s: %s (Goal ID: %s", g.Title, desc, g.ID)
		if g.GoalType != "" {
			line += ", type: " + g.GoalType
		}
		return line + ")"
	})

	b.WriteString("\nTODAY'S PENDING TASKS:\n")
	if len(s.TodayPending) == 0 {
		b.WriteString("- None\n")
	}
	writeCapped(&b, len(s.TodayPending), limit, func(i int) string {
		t := s.TodayPending[i]
		line := "- " + t.Title
		if t.Description != "" {
			line += ": " + t.Description
		}
		return line + " (Task ID: " + t.ID + ")"
	})

	b.WriteString("\nTODAY'S COMPLETED TASKS:\n")
	if len(s.TodayCompleted) == 0 {
		b.WriteString("- None\n")
	}
	writeCapped(&b, len(s.TodayCompleted), limit, func(i int) string {
		return "- " + s.TodayCompleted[i].Title
	})

	b.WriteString("\nID RULES:\n")
	b.WriteString("- Pass Goal IDs and Task IDs exactly as listed when calling tools.\n")
	b.WriteString("- Never show an ID to the user; refer to goals and tasks by title.\n")
	return b.String()
}

func writeCapped(b *strings.Builder, n, limit int, line func(i int) string) {
	shown := n
	if limit > 0 && n > limit {
		shown = limit
	}
	for i := range shown {
		b.WriteString(line(i))
		b.WriteByte('\n')
	}
	if shown < n {
		fmt.Fprintf(b, "- +%d more\n", n-shown)
	}
}
