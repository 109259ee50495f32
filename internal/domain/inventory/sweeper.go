package inventory

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Expirer is the part of Service the sweeper drives.
type Expirer interface {
	ExpireOverdue(ctx context.Context) (int, error)
}

// Sweeper periodically marks overdue Available units as Expired.
type Sweeper struct {
	expirer  Expirer
	interval time.Duration
	logger   zerolog.Logger
}

func NewSweeper(e Expirer, interval time.Duration, logger zerolog.Logger) *Sweeper {
	return &Sweeper{expirer: e, interval: interval, logger: logger.With().Str("component", "expiry_sweeper").Logger()}
}

// Run sweeps once immediately and then on every tick until ctx is done.
// A non-positive interval disables the sweeper.
func (s *Sweeper) Run(ctx context.Context) {
	if s.interval <= 0 {
		return
	}
	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	n, err := s.expirer.ExpireOverdue(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Error().Err(err).Msg("expiry sweep failed")
		}
		return
	}
	if n > 0 {
		s.logger.Info().Int("expired", n).Msg("expired overdue blood units")
	}
}
