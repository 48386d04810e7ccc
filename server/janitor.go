package server

import (
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/novachat/nova/stores"
)

// Janitor prunes saved sessions past a retention window on a cron schedule.
// Zero retention disables pruning entirely.
type Janitor struct {
	Store     stores.SessionStore
	Retention time.Duration
	Schedule  string // cron spec, defaults to hourly
	Logger    *log.Logger

	cron *cron.Cron
}

// Start registers the prune job and begins the scheduler.
func (j *Janitor) Start() error {
	if j.Retention <= 0 {
		return nil
	}

	schedule := j.Schedule
	if schedule == "" {
		schedule = "@hourly"
	}

	j.cron = cron.New()
	if _, err := j.cron.AddFunc(schedule, j.Prune); err != nil {
		return err
	}
	j.cron.Start()
	return nil
}

// Stop halts the scheduler. Safe to call when never started.
func (j *Janitor) Stop() {
	if j.cron != nil {
		j.cron.Stop()
	}
}

// Prune deletes every session whose last update is older than the retention
// window. Failures are logged per session and do not stop the sweep.
func (j *Janitor) Prune() {
	sessions, err := j.Store.List()
	if err != nil {
		j.logf("Session prune failed to list sessions: %v", err)
		return
	}

	cutoff := time.Now().Add(-j.Retention)
	pruned := 0
	for _, session := range sessions {
		if session.UpdatedAt.After(cutoff) {
			continue
		}
		if err := j.Store.Delete(session.ID); err != nil {
			j.logf("Failed to prune session %s: %v", session.ID, err)
			continue
		}
		pruned++
	}
	if pruned > 0 {
		j.logf("Pruned %d expired sessions", pruned)
	}
}

func (j *Janitor) logf(format string, args ...interface{}) {
	if j.Logger != nil {
		j.Logger.Printf(format, args...)
	} else {
		log.Printf(format, args...)
	}
}
