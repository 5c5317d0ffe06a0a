package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/chris/focus/internal/db"
)

type fakeCheckIns struct {
	msg    string
	err    error
	userID string
}

func (f *fakeCheckIns) CheckIn(_ context.Context, userID string) (string, error) {
	f.userID = userID
	return f.msg, f.err
}

type webhookRecorder struct {
	mu       sync.Mutex
	contents []string
	status   int
}

func (w *webhookRecorder) server(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decoding webhook body: %v", err)
		}
		w.mu.Lock()
		w.contents = append(w.contents, body["content"])
		status := w.status
		w.mu.Unlock()
		if status == 0 {
			status = http.StatusNoContent
		}
		rw.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSweepStreaks(t *testing.T) {
	d, err := db.Open(":memory:", time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()
	ctx := context.Background()

	g, _ := d.CreateGoal(ctx, "u1", db.GoalInput{Title: "Run"})
	task, _ := d.CreateTask(ctx, "u1", db.TaskInput{GoalID: g.ID, Title: "Jog"})
	if _, err := d.CompleteTask(ctx, task.ID, "u1", time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC)); err != nil {
		t.Fatal(err)
	}

	s := New(Config{Streaks: d, Location: time.UTC})
	s.now = func() time.Time { return time.Date(2026, 10, 19, 0, 5, 0, 0, time.UTC) }
	if err := s.SweepStreaks(ctx); err != nil {
		t.Fatalf("SweepStreaks: %v", err)
	}

	streak, err := d.GetStreak(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if streak.CurrentStreak != 0 || streak.BestStreak != 1 {
		t.Errorf("streak = %+v, want current 0 best 1", streak)
	}
}

func TestRunCheckInPostsWebhook(t *testing.T) {
	rec := &webhookRecorder{}
	srv := rec.server(t)
	checkIns := &fakeCheckIns{msg: "Good morning! Two tasks today."}

	s := New(Config{CheckIns: checkIns, CheckInUserID: "u1", WebhookURL: srv.URL})
	if err := s.RunCheckIn(context.Background()); err != nil {
		t.Fatalf("RunCheckIn: %v", err)
	}
	if checkIns.userID != "u1" {
		t.Errorf("check-in ran for %q", checkIns.userID)
	}
	if len(rec.contents) != 1 || rec.contents[0] != checkIns.msg {
		t.Errorf("webhook got %v", rec.contents)
	}
}

func TestRunCheckInPrefersDM(t *testing.T) {
	rec := &webhookRecorder{}
	srv := rec.server(t)
	var dmTo, dmContent string
	s := New(Config{
		CheckIns:      &fakeCheckIns{msg: "hi"},
		CheckInUserID: "discord:42",
		WebhookURL:    srv.URL,
		DMSend: func(id, content string) error {
			dmTo, dmContent = id, content
			return nil
		},
	})
	if err := s.RunCheckIn(context.Background()); err != nil {
		t.Fatalf("RunCheckIn: %v", err)
	}
	if dmTo != "42" || dmContent != "hi" {
		t.Errorf("DM = %q %q", dmTo, dmContent)
	}
	if len(rec.contents) != 0 {
		t.Errorf("webhook should not be used, got %v", rec.contents)
	}
}

func TestRunCheckInDMFailureFallsBack(t *testing.T) {
	rec := &webhookRecorder{}
	srv := rec.server(t)
	s := New(Config{
		CheckIns:      &fakeCheckIns{msg: "hi"},
		CheckInUserID: "discord:42",
		WebhookURL:    srv.URL,
		DMSend:        func(string, string) error { return errors.New("dm closed") },
	})
	if err := s.RunCheckIn(context.Background()); err != nil {
		t.Fatalf("RunCheckIn: %v", err)
	}
	if len(rec.contents) != 1 {
		t.Errorf("webhook got %v", rec.contents)
	}
}

func TestRunCheckInErrors(t *testing.T) {
	rec := &webhookRecorder{status: http.StatusInternalServerError}
	srv := rec.server(t)

	s := New(Config{CheckIns: &fakeCheckIns{msg: "hi"}, CheckInUserID: "u1", WebhookURL: srv.URL})
	if err := s.RunCheckIn(context.Background()); err == nil || !strings.Contains(err.Error(), "500") {
		t.Errorf("webhook 500 error = %v", err)
	}

	s = New(Config{CheckIns: &fakeCheckIns{msg: "hi"}, CheckInUserID: "u1"})
	if err := s.RunCheckIn(context.Background()); err == nil {
		t.Error("expected an error with no delivery method")
	}

	s = New(Config{CheckIns: &fakeCheckIns{err: errors.New("boom")}, CheckInUserID: "u1", WebhookURL: srv.URL})
	if err := s.RunCheckIn(context.Background()); err == nil {
		t.Error("expected the check-in error")
	}
}

func TestStartRejectsBadCron(t *testing.T) {
	s := New(Config{Streaks: nopSweeper{}, SweepCron: "every day"})
	if err := s.Start(); err == nil {
		s.Stop()
		t.Fatal("expected an invalid cron error")
	}
}

func TestStartRegistersJobs(t *testing.T) {
	s := New(Config{
		Streaks:       nopSweeper{},
		SweepCron:     "5 0 * * *",
		CheckIns:      &fakeCheckIns{},
		CheckInCron:   "0 9 * * *",
		CheckInUserID: "u1",
	})
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()
	if n := len(s.cron.Entries()); n != 2 {
		t.Errorf("registered %d jobs, want 2", n)
	}
}

type nopSweeper struct{}

func (nopSweeper) SweepStreaks(context.Context, time.Time) (int64, error) { return 0, nil }
