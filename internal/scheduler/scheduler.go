package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog/log"
)

// Refresher reloads the observation store.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Scheduler periodically reloads observations.
type Scheduler struct {
	scheduler *gocron.Scheduler
	refresher Refresher
	interval  time.Duration
	timeout   time.Duration
}

// New creates a new Scheduler. Each run is bounded by timeout.
func New(interval, timeout time.Duration, refresher Refresher) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	return &Scheduler{
		scheduler: s,
		refresher: refresher,
		interval:  interval,
		timeout:   timeout,
	}
}

// Start schedules the reload job, runs it once immediately, and starts the
// underlying scheduler.
func (s *Scheduler) Start() error {
	interval := s.interval
	if interval <= 0 {
		interval = time.Hour
	}
	timeout := s.timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}

	_, err := s.scheduler.Every(interval).Do(func() {
		log.Info().Msg("scheduler: running observation reload")

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		started := time.Now()
		if err := s.refresher.Refresh(ctx); err != nil {
			log.Warn().Err(err).Msg("scheduler: reload failed")
			return
		}
		log.Info().Dur("took", time.Since(started)).Msg("scheduler: reload complete")
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
