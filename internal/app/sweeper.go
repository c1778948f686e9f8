package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"fixia/internal/domain"
)

// SweepService materializes review obligations for completed connections that
// have neither a review nor an obligation row yet. It runs from cmd/sweeper.
type SweepService struct {
	repo     domain.ObligationRepository
	cache    domain.Cache
	notifier domain.Notifier
	grace    time.Duration
}

func NewSweepService(r domain.ObligationRepository, c domain.Cache, n domain.Notifier, grace time.Duration) *SweepService {
	return &SweepService{repo: r, cache: c, notifier: n, grace: grace}
}

// Candidates lists completed connections still owing an obligation.
func (s *SweepService) Candidates(ctx context.Context, limit int) ([]domain.ServiceConnection, error) {
	return s.repo.ListCompletedWithoutReview(ctx, limit)
}

// Materialize creates the obligation for one completed connection. The due
// date is completion time plus the grace period. CreateObligation is an
// idempotent, review-aware upsert: re-running a sweep never duplicates rows,
// and a connection reviewed after the candidate list was loaded inserts
// nothing.
func (s *SweepService) Materialize(ctx context.Context, c domain.ServiceConnection) error {
	if c.ServiceCompletedAt == nil {
		// candidate query should never hand us these
		return domain.ErrNotFound
	}
	due := c.ServiceCompletedAt.Add(s.grace)
	if err := s.repo.CreateObligation(ctx, c.ID, c.ExplorerID, due); err != nil {
		return err
	}

	if s.cache != nil {
		_ = s.cache.Del(ctx, obligationsKey(c.ExplorerID))
	}

	if s.notifier != nil {
		if nerr := s.notifier.ObligationReminder(ctx, c.ExplorerID, c.ID, due); nerr != nil {
			log.Warn().Err(nerr).
				Int64("connection_id", c.ID).
				Int64("explorer_id", c.ExplorerID).
				Msg("obligation reminder failed")
		}
	}
	return nil
}
