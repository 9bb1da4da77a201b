// Package maintenance runs periodic background jobs: a stats snapshot
// that logs queue and worker activity and keeps the depth gauges fresh
// between scrapes.
package maintenance

import (
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/nanoserve/nanoserve/pkg/metrics"
	"github.com/nanoserve/nanoserve/pkg/server"
)

// Janitor schedules recurring jobs on a cron runner.
type Janitor struct {
	c   *cron.Cron
	log *slog.Logger
}

// New returns a stopped Janitor.
func New(log *slog.Logger) *Janitor {
	if log == nil {
		log = slog.Default()
	}
	return &Janitor{
		c:   cron.New(),
		log: log,
	}
}

// AddJob schedules fn on the given cron spec ("@every 30s", "0 * * * *").
// A panicking job is logged and does not take the runner down.
func (j *Janitor) AddJob(spec, name string, fn func()) error {
	_, err := j.c.AddFunc(spec, func() {
		defer func() {
			if r := recover(); r != nil {
				j.log.Error("maintenance job panicked", "job", name, "panic", r)
			}
		}()
		fn()
	})
	if err != nil {
		return fmt.Errorf("schedule %s job: %w", name, err)
	}
	return nil
}

// AddStatsJob schedules the standard activity snapshot: it logs the
// queue and pool counters and refreshes the gauges.
func (j *Janitor) AddStatsJob(spec string, srv *server.Server, m *metrics.Registry) error {
	return j.AddJob(spec, "stats", func() {
		qs := srv.QueueStats()
		ps := srv.PoolStats()

		m.QueueDepth.Set(float64(srv.QueueLen()))
		m.WorkersActive.Set(float64(ps.Active))

		j.log.Info("activity snapshot",
			"queue_depth", srv.QueueLen(),
			"pushed", qs.Pushed,
			"popped", qs.Popped,
			"blocked_pushes", qs.BlockedPushes,
			"handled", ps.Handled,
			"failed", ps.Failed,
			"active_workers", ps.Active)
	})
}

// Start begins running scheduled jobs.
func (j *Janitor) Start() {
	j.c.Start()
	j.log.Debug("maintenance jobs started")
}

// Stop halts scheduling and waits for running jobs to finish.
func (j *Janitor) Stop() {
	<-j.c.Stop().Done()
	j.log.Debug("maintenance jobs stopped")
}
