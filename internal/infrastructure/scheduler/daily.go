package scheduler

import (
	"context"
	"fmt"
	"time"

	"ArxivDigest/internal/ports"
)

// DailyScheduler fires a job once per day at a fixed wall-clock time in
// a configured timezone.
type DailyScheduler struct {
	at       string
	location *time.Location
	stop     chan struct{}
}

var _ ports.Scheduler = (*DailyScheduler)(nil)

// NewDailyScheduler builds a scheduler firing at an "HH:MM" local time.
func NewDailyScheduler(at string, loc *time.Location) *DailyScheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &DailyScheduler{at: at, location: loc}
}

// Start launches the trigger loop. The job receives the scheduled fire
// time in the scheduler's timezone.
func (s *DailyScheduler) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil {
		return nil
	}
	if s.stop != nil {
		return nil
	}

	hour, minute, err := parseClock(s.at)
	if err != nil {
		return err
	}

	s.stop = make(chan struct{})
	go func() {
		for {
			next := nextRun(time.Now().In(s.location), hour, minute)
			timer := time.NewTimer(time.Until(next))
			select {
			case <-timer.C:
				job(next)
			case <-ctx.Done():
				timer.Stop()
				return
			case <-s.stop:
				timer.Stop()
				return
			}
		}
	}()

	return nil
}

// Stop halts the trigger goroutine.
func (s *DailyScheduler) Stop(ctx context.Context) error {
	if s.stop == nil {
		return nil
	}
	close(s.stop)
	s.stop = nil
	return nil
}

func parseClock(at string) (hour, minute int, err error) {
	if _, err := fmt.Sscanf(at, "%d:%d", &hour, &minute); err != nil {
		return 0, 0, fmt.Errorf("invalid trigger time %q, want HH:MM", at)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid trigger time %q, want HH:MM", at)
	}
	return hour, minute, nil
}

// nextRun returns the next occurrence of hour:minute strictly after now.
func nextRun(now time.Time, hour, minute int) time.Time {
	candidate := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !candidate.After(now) {
		candidate = candidate.AddDate(0, 0, 1)
	}
	return candidate
}
