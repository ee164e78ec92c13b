package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/kelly-eugenia/weather-forecast/internal/history"
	"github.com/kelly-eugenia/weather-forecast/internal/logger"
)

// Snapshot receives freshly derived history.
type Snapshot interface {
	Replace(rows []history.FeatureRow)
	Len() int
}

// ArtifactCache is dropped after each reload so rotated models are picked up.
type ArtifactCache interface {
	Reload()
}

// Reloader refreshes the history snapshot from its source and clears the
// artifact cache.
type Reloader struct {
	source    history.Source
	snapshot  Snapshot
	artifacts ArtifactCache
	log       logger.Logger
}

// NewReloader creates a new Reloader.
func NewReloader(source history.Source, snapshot Snapshot, artifacts ArtifactCache, log logger.Logger) *Reloader {
	return &Reloader{
		source:    source,
		snapshot:  snapshot,
		artifacts: artifacts,
		log:       logger.WithComponent(log, "reloader"),
	}
}

// Reload swaps in a new snapshot. On failure the previous snapshot and cache
// stay in place.
func (r *Reloader) Reload(ctx context.Context) error {
	rows, err := history.Load(ctx, r.source)
	if err != nil {
		return fmt.Errorf("reload history: %w", err)
	}
	if len(rows) == 0 {
		return fmt.Errorf("reload history: %s yielded no usable rows", r.source.Name())
	}

	r.snapshot.Replace(rows)
	r.artifacts.Reload()
	r.log.WithFields(map[string]interface{}{
		"source": r.source.Name(),
		"rows":   len(rows),
	}).Info("history reloaded")
	return nil
}

// Scheduler periodically runs a reload job.
type Scheduler struct {
	scheduler *gocron.Scheduler
	job       func(ctx context.Context) error
	interval  time.Duration
	timeout   time.Duration
	log       logger.Logger
}

// New creates a new Scheduler running job every interval, each run bounded by
// timeout. A zero interval disables scheduling.
func New(interval, timeout time.Duration, job func(ctx context.Context) error, log logger.Logger) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		job:       job,
		interval:  interval,
		timeout:   timeout,
		log:       logger.WithComponent(log, "scheduler"),
	}
}

// Start schedules the periodic job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if s.interval <= 0 {
		s.log.Info("reload interval not set; nothing to schedule")
		return nil
	}

	_, err := s.scheduler.Every(s.interval).WaitForSchedule().Do(s.run)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	s.log.Infof("reload job scheduled every %s", s.interval)
	return nil
}

func (s *Scheduler) run() {
	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	if err := s.job(ctx); err != nil {
		s.log.Errorf("reload job failed: %v", err)
		return
	}
	s.log.Debugf("reload job completed")
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
