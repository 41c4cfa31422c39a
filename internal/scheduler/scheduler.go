package scheduler

import (
	"context"
	"log/slog"
	"time"
)

// Scheduler triggers the nightly job once a day at a fixed local time.
type Scheduler struct {
	job          *NightlyJob
	hour, minute int
	loc          *time.Location
	now          func() time.Time
	log          *slog.Logger
}

func NewScheduler(job *NightlyJob, hour, minute int, loc *time.Location, log *slog.Logger) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	return &Scheduler{job: job, hour: hour, minute: minute, loc: loc, now: time.Now, log: log}
}

// NextRun returns the first hour:minute in loc strictly after now.
func NextRun(now time.Time, hour, minute int, loc *time.Location) time.Time {
	now = now.In(loc)
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, loc)
	if !next.After(now) {
		next = time.Date(now.Year(), now.Month(), now.Day()+1, hour, minute, 0, 0, loc)
	}
	return next
}

// Run blocks until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		next := NextRun(s.now(), s.hour, s.minute, s.loc)
		s.log.Info("nightly aggregation scheduled", slog.Time("next_run", next))

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}

		if _, err := s.job.Run(ctx, s.now()); err != nil {
			s.log.Error("nightly aggregation failed", slog.String("error", err.Error()))
		}
	}
}
