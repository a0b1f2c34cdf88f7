// Package jobs runs the server's scheduled maintenance.
package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// PosterPurger removes poster objects superseded by a newer upload.
type PosterPurger interface {
	PurgeStale(ctx context.Context) (int, error)
}

// PosterJanitor deletes stale current_poster.* objects left behind when an
// upload changes the file extension.
type PosterJanitor struct {
	posters PosterPurger
	timeout time.Duration
}

func NewPosterJanitor(posters PosterPurger) *PosterJanitor {
	return &PosterJanitor{posters: posters, timeout: time.Minute}
}

// Run implements cron.Job.
func (j *PosterJanitor) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	removed, err := j.posters.PurgeStale(ctx)
	if err != nil {
		slog.Error("poster janitor failed", "error", err)
		return
	}
	if removed > 0 {
		slog.Info("poster janitor removed stale posters", "count", removed)
	}
}

// Manager owns the cron engine.
type Manager struct {
	engine  *cron.Cron
	janitor *PosterJanitor
}

func NewManager(janitor *PosterJanitor) *Manager {
	return &Manager{
		engine: cron.New(cron.WithChain(
			cron.Recover(cron.DiscardLogger),
			cron.SkipIfStillRunning(cron.DiscardLogger),
		)),
		janitor: janitor,
	}
}

// RegisterJobs schedules the janitor. An empty schedule disables it.
func (m *Manager) RegisterJobs(schedule string) error {
	if schedule == "" {
		slog.Info("poster janitor disabled")
		return nil
	}
	if _, err := m.engine.AddJob(schedule, m.janitor); err != nil {
		return err
	}
	return nil
}

func (m *Manager) Start() {
	slog.Info("cron engine started", "jobs", len(m.engine.Entries()))
	m.engine.Start()
}

// Stop halts scheduling and waits for a running job until ctx ends.
func (m *Manager) Stop(ctx context.Context) error {
	done := m.engine.Stop()
	select {
	case <-done.Done():
		slog.Info("cron engine stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
