package agent

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/chris/focus/internal/db"
)

func TestSnapshotPartitionsToday(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()
	g := mustGoal(t, d, "u1", "Ship it")
	done := mustTask(t, d, "u1", g.ID, "Done today", "2026-10-19")
	mustTask(t, d, "u1", g.ID, "Pending today", "2026-10-19")
	mustTask(t, d, "u1", g.ID, "Tomorrow", "2026-10-20")
	if _, err := d.CompleteTask(ctx, done.ID, "u1", fixedNow); err != nil {
		t.Fatal(err)
	}
	other := mustGoal(t, d, "u2", "Not mine")
	mustTask(t, d, "u2", other.ID, "Their task", "2026-10-19")

	a := NewAssembler(d, time.UTC, func() time.Time { return fixedNow })
	s, err := a.Snapshot(ctx, "u1")
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if s.Today != "2026-10-19" {
		t.Errorf("today = %q", s.Today)
	}
	if len(s.Goals) != 1 || len(s.Tasks) != 3 || len(s.Completed) != 1 {
		t.Errorf("goals=%d tasks=%d completed=%d", len(s.Goals), len(s.Tasks), len(s.Completed))
	}
	if len(s.TodayTasks) != 2 || len(s.TodayCompleted) != 1 || len(s.TodayPending) != 1 {
		t.Errorf("today=%d done=%d pending=%d", len(s.TodayTasks), len(s.TodayCompleted), len(s.TodayPending))
	}
	if s.Streak == nil || s.Streak.CurrentStreak != 1 {
		t.Errorf("streak = %+v", s.Streak)
	}

	out := Render(s, 10)
	for _, want := range []string{
		"CURRENT USER STATUS (today is 2026-10-19)",
		"- Streak: 1 days (best 1)",
		"- Today: 1 of 2 completed (50%), 1 pending",
		"Goal ID: " + g.ID,
		"- Pending today (Task ID: ",
		"TODAY'S COMPLETED TASKS:\n- Done today\n",
		"ID RULES",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("render missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Their task") || strings.Contains(out, "Not mine") {
		t.Error("render leaks another user's rows")
	}
}

func TestRenderCapsLists(t *testing.T) {
	s := &Snapshot{Today: "2026-10-19"}
	for i := range 7 {
		s.Goals = append(s.Goals, db.Goal{ID: fmt.Sprint("g", i), Title: fmt.Sprint("Goal ", i)})
		s.TodayPending = append(s.TodayPending, db.Task{ID: fmt.Sprint("t", i), Title: fmt.Sprint("Task ", i)})
	}

	out := Render(s, 3)
	if strings.Count(out, "(Goal ID:") != 3 || strings.Count(out, "(Task ID:") != 3 {
		t.Errorf("lists not capped:\n%s", out)
	}
	if strings.Count(out, "- +4 more") != 2 {
		t.Errorf("expected two +4 more lines:\n%s", out)
	}
	if !strings.Contains(out, "No description") {
		t.Error("goal without description should say so")
	}

	empty := Render(&Snapshot{Today: "2026-10-19"}, 3)
	if !strings.Contains(empty, "ACTIVE GOALS:\n- None yet") || strings.Contains(empty, "more") {
		t.Errorf("empty render:\n%s", empty)
	}
}

func TestTranscriptRoundTrip(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()
	tr := NewTranscript(d)

	id, err := tr.Resolve(ctx, "u1", "")
	if err != nil || id != "" {
		t.Fatalf("Resolve with no sessions = %q, %v", id, err)
	}
	id, err = tr.Append(ctx, "u1", "", "first question", "first answer")
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if _, err := tr.Append(ctx, "u1", id, "second question", "second answer"); err != nil {
		t.Fatalf("Append: %v", err)
	}

	latest, err := tr.Resolve(ctx, "u1", "")
	if err != nil || latest != id {
		t.Errorf("Resolve latest = %q, %v; want %q", latest, err, id)
	}
	if got, _ := tr.Resolve(ctx, "u2", id); got != "" {
		t.Errorf("another user resolved the session: %q", got)
	}

	hist, err := tr.History(ctx, "u1", id)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	want := []string{"first question", "first answer", "second question", "second answer"}
	if len(hist) != len(want) {
		t.Fatalf("history has %d messages", len(hist))
	}
	for i, m := range hist {
		if m.Content != want[i] {
			t.Errorf("hist[%d] = %q, want %q", i, m.Content, want[i])
		}
	}

	if _, err := tr.Append(ctx, "u2", id, "intrude", "no"); !db.IsNotFound(err) {
		t.Errorf("foreign append error = %v, want not found", err)
	}
}

func TestTranscriptConcurrentAppendsStayPaired(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()
	tr := NewTranscript(d)
	id, err := tr.Append(ctx, "u1", "", "qstart", "astart")
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := tr.Append(ctx, "u1", id, fmt.Sprint("q", i), fmt.Sprint("a", i)); err != nil {
				t.Errorf("Append %d: %v", i, err)
			}
		}()
	}
	wg.Wait()

	hist, err := tr.History(ctx, "u1", id)
	if err != nil {
		t.Fatal(err)
	}
	if len(hist) != 18 {
		t.Fatalf("history has %d messages, want 18", len(hist))
	}
	for i := 0; i < len(hist); i += 2 {
		q, a := hist[i], hist[i+1]
		if q.Role != "user" || a.Role != "assistant" || strings.TrimPrefix(q.Content, "q") != strings.TrimPrefix(a.Content, "a") {
			t.Errorf("exchange %d interleaved: %+v %+v", i/2, q, a)
		}
	}
	if len(tr.locks) != 0 {
		t.Errorf("%d session locks leaked", len(tr.locks))
	}
}
