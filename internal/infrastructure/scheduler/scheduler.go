// Package scheduler runs the periodic sync work: the scheduled pass, the
// queue drain and the hourly order verification.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/RodolfoDevApp/eventshop-storesync-go/internal/logger"
)

type Task struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

type Scheduler struct {
	tasks []Task
	log   *logger.Logger
	wg    sync.WaitGroup
}

func New(tasks ...Task) *Scheduler {
	return &Scheduler{tasks: tasks, log: logger.Named("scheduler")}
}

// Start launches one ticker loop per task. Runs of the same task never overlap.
func (s *Scheduler) Start(ctx context.Context) {
	for _, t := range s.tasks {
		if t.Interval <= 0 || t.Run == nil {
			s.log.Warn().Str("task", t.Name).Msg("task disabled")
			continue
		}
		s.wg.Add(1)
		go s.loop(ctx, t)
	}
}

// Wait blocks until every loop has stopped.
func (s *Scheduler) Wait() { s.wg.Wait() }

func (s *Scheduler) loop(ctx context.Context, t Task) {
	defer s.wg.Done()
	ticker := time.NewTicker(t.Interval)
	defer ticker.Stop()

	s.log.Info().Str("task", t.Name).Dur("interval", t.Interval).Msg("task scheduled")
	for {
		select {
		case <-ctx.Done():
			s.log.Info().Str("task", t.Name).Msg("task stopped")
			return
		case <-ticker.C:
			start := time.Now()
			if err := t.Run(ctx); err != nil {
				s.log.Error().Err(err).Str("task", t.Name).Msg("task failed")
				continue
			}
			s.log.Debug().Str("task", t.Name).Dur("elapsed", time.Since(start)).Msg("task done")
		}
	}
}
