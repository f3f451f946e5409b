// Package scheduler triggers aggregation runs at fixed wall-clock
// times in the configured timezone.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Runner is the aggregation entry point the scheduler drives.
type Runner interface {
	Run(ctx context.Context, date string) error
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(ctx context.Context, date string) error

func (f RunnerFunc) Run(ctx context.Context, date string) error {
	return f(ctx, date)
}

// Scheduler fires the runner once per configured HH:MM time per day.
type Scheduler struct {
	runner   Runner
	times    []string
	location *time.Location
	interval time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu        sync.Mutex
	lastFired map[string]string // HH:MM -> date last fired
}

// New builds a scheduler for the given "HH:MM" times. Invalid entries
// are dropped with a warning.
func New(runner Runner, times []string, location *time.Location) *Scheduler {
	if location == nil {
		location = time.Local
	}

	valid := make([]string, 0, len(times))
	for _, t := range times {
		if _, err := time.Parse("15:04", t); err != nil {
			slog.Warn("Ignoring invalid schedule time", "time", t, "error", err)
			continue
		}
		valid = append(valid, t)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		runner:    runner,
		times:     valid,
		location:  location,
		interval:  30 * time.Second,
		ctx:       ctx,
		cancel:    cancel,
		lastFired: make(map[string]string),
	}
}

func (s *Scheduler) Start() {
	if len(s.times) == 0 {
		slog.Info("Scheduler disabled, no valid schedule times")
		return
	}

	slog.Info("Scheduler started", "times", s.times, "timezone", s.location.String())

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.tick()
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

// tick fires the runner for any schedule time matching the current
// minute that has not fired yet today.
func (s *Scheduler) tick() {
	now := time.Now().In(s.location)
	clock := now.Format("15:04")
	date := now.Format("2006-01-02")

	for _, t := range s.times {
		if t != clock {
			continue
		}

		s.mu.Lock()
		fired := s.lastFired[t] == date
		if !fired {
			s.lastFired[t] = date
		}
		s.mu.Unlock()

		if fired {
			continue
		}

		slog.Info("Scheduled aggregation triggered", "time", t, "date", date)
		if err := s.runner.Run(s.ctx, ""); err != nil {
			slog.Error("Scheduled aggregation failed", "time", t, "error", err)
		}
	}
}
