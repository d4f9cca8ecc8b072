// Package scheduler runs the periodic resolution sweep. Overlap between
// ticks is safe: the engine's status compare-and-set makes a second
// resolution attempt a no-op, so no scheduler-level mutual exclusion is
// needed (and none would help across processes).
package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/aletheia-protocol/aletheia-dow/src/dow/engine"
)

const defaultInterval = 5 * time.Minute

// Resolver is the slice of the engine the sweeper needs.
type Resolver interface {
	CheckAndResolve() []engine.Resolution
	PruneRateLimits()
}

type Config struct {
	Interval time.Duration
	Logger   zerolog.Logger
}

type Sweeper struct {
	resolver Resolver
	interval time.Duration
	logger   zerolog.Logger
}

func NewSweeper(resolver Resolver, cfg Config) *Sweeper {
	interval := cfg.Interval
	if interval == 0 {
		interval = defaultInterval
	}
	return &Sweeper{
		resolver: resolver,
		interval: interval,
		logger:   cfg.Logger.With().Str("component", "resolution_sweeper").Logger(),
	}
}

// Start begins the background sweep loop. It stops when ctx is cancelled.
func (s *Sweeper) Start(ctx context.Context) {
	go s.run(ctx)
}

func (s *Sweeper) run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info().Dur("interval", s.interval).Msg("resolution sweeper started")
	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("resolution sweeper stopped")
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

// Sweep settles every expired challenge and prunes rate-limit state. Errors
// inside individual resolutions are logged by the engine and never abort the
// loop.
func (s *Sweeper) Sweep() {
	resolved := s.resolver.CheckAndResolve()
	if len(resolved) > 0 {
		s.logger.Info().Int("resolved", len(resolved)).Msg("settled expired challenges")
	}
	s.resolver.PruneRateLimits()
}
