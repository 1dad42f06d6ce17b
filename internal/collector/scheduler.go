package collector

import (
	"context"
	"log/slog"
	"time"
)

// Scheduler drives the poller on a fixed interval. Each tick runs one poll
// cycle for all endpoints; endpoint failures never stop the loop, the next
// tick is the retry mechanism.
type Scheduler struct {
	logger   *slog.Logger
	poller   *Poller
	interval time.Duration
}

func NewScheduler(logger *slog.Logger, poller *Poller, interval time.Duration) *Scheduler {
	return &Scheduler{
		logger:   logger,
		poller:   poller,
		interval: interval,
	}
}

func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.poller.BuildEnvironments(ctx)
	s.poller.PollAll(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.poller.PollAll(ctx)
		}
	}
}
