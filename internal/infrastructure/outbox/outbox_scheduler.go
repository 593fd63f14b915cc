package outbox

import (
	"context"
	"time"

	"github.com/RodolfoDevApp/eventshop-storesync-go/internal/logger"
)

const retention = 7 * 24 * time.Hour

type Scheduler struct {
	dispatcher *Dispatcher
	interval   time.Duration
	kick       chan struct{}
	log        *logger.Logger
}

func NewScheduler(d *Dispatcher, intervalSec int) *Scheduler {
	if intervalSec <= 0 {
		intervalSec = 5
	}
	return &Scheduler{
		dispatcher: d,
		interval:   time.Duration(intervalSec) * time.Second,
		kick:       make(chan struct{}, 1),
		log:        logger.Named("outbox"),
	}
}

func (s *Scheduler) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		purge := time.NewTicker(time.Hour)
		defer purge.Stop()

		for {
			select {
			case <-ctx.Done():
				s.log.Info().Msg("outbox scheduler stopped")
				return
			case <-ticker.C:
				s.dispatch(ctx)
			case <-s.kick:
				s.dispatch(ctx)
			case <-purge.C:
				if n, err := s.dispatcher.Purge(ctx, retention); err != nil {
					s.log.Error().Err(err).Msg("outbox purge error")
				} else if n > 0 {
					s.log.Info().Int64("purged", n).Msg("outbox purge")
				}
			}
		}
	}()
}

// Kick asks for a dispatch now. Never blocks; kicks pending a dispatch
// collapse into one.
func (s *Scheduler) Kick() {
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

func (s *Scheduler) dispatch(ctx context.Context) {
	n, err := s.dispatcher.DispatchOnce(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("outbox dispatch error")
	} else if n > 0 {
		s.log.Debug().Int("published", n).Msg("outbox dispatch")
	}
}
