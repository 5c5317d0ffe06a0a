// Package scheduler runs the periodic jobs: the nightly streak sweep and the
// morning check-in.
package scheduler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// StreakSweeper breaks streaks that missed a day.
type StreakSweeper interface {
	SweepStreaks(ctx context.Context, today time.Time) (int64, error)
}

// CheckInRunner produces a check-in message for a user.
type CheckInRunner interface {
	CheckIn(ctx context.Context, userID string) (string, error)
}

type Config struct {
	Streaks  StreakSweeper
	CheckIns CheckInRunner
	Location *time.Location

	SweepCron   string
	CheckInCron string
	// CheckInUserID receives the check-in. Empty disables the job.
	CheckInUserID string
	WebhookURL    string
	// DMSend delivers to a Discord account id. Used before the webhook when
	// the check-in user is a linked Discord user.
	DMSend func(discordUserID, content string) error
	// JobTimeout bounds one job run.
	JobTimeout time.Duration
}

type Scheduler struct {
	cfg  Config
	cron *cron.Cron
	http *http.Client
	now  func() time.Time
}

func New(cfg Config) *Scheduler {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.JobTimeout == 0 {
		cfg.JobTimeout = 2 * time.Minute
	}
	return &Scheduler{
		cfg:  cfg,
		cron: cron.New(cron.WithLocation(cfg.Location)),
		http: &http.Client{Timeout: 10 * time.Second},
		now:  time.Now,
	}
}

// Start registers the configured jobs and starts the cron loop. An invalid
// cron expression is an error and nothing is started.
func (s *Scheduler) Start() error {
	if s.cfg.SweepCron != "" && s.cfg.Streaks != nil {
		if _, err := s.cron.AddFunc(s.cfg.SweepCron, s.job("streak-sweep", s.SweepStreaks)); err != nil {
			return fmt.Errorf("invalid streak sweep cron %q: %w", s.cfg.SweepCron, err)
		}
	}
	if s.cfg.CheckInCron != "" && s.cfg.CheckInUserID != "" && s.cfg.CheckIns != nil {
		if _, err := s.cron.AddFunc(s.cfg.CheckInCron, s.job("check-in", s.RunCheckIn)); err != nil {
			return fmt.Errorf("invalid check-in cron %q: %w", s.cfg.CheckInCron, err)
		}
	}
	s.cron.Start()
	slog.Info("scheduler started", "jobs", len(s.cron.Entries()))
	return nil
}

// Stop stops the cron loop and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) job(name string, run func(context.Context) error) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.JobTimeout)
		defer cancel()
		start := time.Now()
		if err := run(ctx); err != nil {
			slog.Error("scheduled job failed", "job", name, "error", err)
			return
		}
		slog.Info("scheduled job completed", "job", name, "elapsed", time.Since(start))
	}
}

// SweepStreaks zeroes streaks whose last activity is before yesterday.
func (s *Scheduler) SweepStreaks(ctx context.Context) error {
	n, err := s.cfg.Streaks.SweepStreaks(ctx, s.now().In(s.cfg.Location))
	if err != nil {
		return fmt.Errorf("sweeping streaks: %w", err)
	}
	slog.Info("streaks swept", "broken", n)
	return nil
}

// RunCheckIn generates the check-in for the configured user and delivers it.
func (s *Scheduler) RunCheckIn(ctx context.Context) error {
	msg, err := s.cfg.CheckIns.CheckIn(ctx, s.cfg.CheckInUserID)
	if err != nil {
		return fmt.Errorf("generating check-in: %w", err)
	}
	return s.deliver(ctx, msg)
}

func (s *Scheduler) deliver(ctx context.Context, content string) error {
	// Try DM first
	if discordID, ok := strings.CutPrefix(s.cfg.CheckInUserID, "discord:"); ok && s.cfg.DMSend != nil {
		err := s.cfg.DMSend(discordID, content)
		if err == nil {
			return nil
		}
		slog.Warn("check-in DM failed, falling back to webhook", "error", err)
	}
	if s.cfg.WebhookURL == "" {
		return fmt.Errorf("no delivery method available (no DM user and no webhook)")
	}
	return s.postWebhook(ctx, content)
}

func (s *Scheduler) postWebhook(ctx context.Context, content string) error {
	body, err := json.Marshal(map[string]string{"content": content})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("posting webhook: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
