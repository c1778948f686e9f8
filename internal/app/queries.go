package app

import (
	"context"
	"fmt"
	"time"

	"fixia/internal/domain"
)

type QueryService struct {
	repo     domain.ObligationRepository
	cache    domain.Cache
	cacheTTL time.Duration
}

func NewQueryService(r domain.ObligationRepository, c domain.Cache, ttl time.Duration) *QueryService {
	return &QueryService{repo: r, cache: c, cacheTTL: ttl}
}

func obligationsKey(explorerID int64) string {
	return fmt.Sprintf("obligations:%d", explorerID)
}

// ListObligations returns the explorer's pending obligations ordered by due
// date ascending. DaysRemaining is recomputed on every call so cached entries
// never serve a stale countdown.
func (s *QueryService) ListObligations(ctx context.Context, explorerID int64) ([]domain.ReviewObligation, error) {
	key := obligationsKey(explorerID)
	var items []domain.ReviewObligation
	if ok, _ := s.cache.Get(ctx, key, &items); ok {
		return withRemainingDays(items, time.Now()), nil
	}

	items, err := s.repo.ListObligations(ctx, explorerID)
	if err != nil {
		return nil, err
	}

	// copy before caching so callers can't mutate the cached value
	cached := make([]domain.ReviewObligation, len(items))
	copy(cached, items)
	_ = s.cache.Set(ctx, key, cached, int(s.cacheTTL.Seconds()))

	return withRemainingDays(items, time.Now()), nil
}

// BlockingStatus derives the gate flag from the obligation count.
func (s *QueryService) BlockingStatus(ctx context.Context, explorerID int64) (domain.BlockingStatus, error) {
	items, err := s.ListObligations(ctx, explorerID)
	if err != nil {
		return domain.BlockingStatus{}, err
	}
	n := len(items)
	st := domain.BlockingStatus{
		IsBlocked:       n > 0,
		ObligationCount: n,
	}
	switch n {
	case 0:
		st.Message = "You have no pending reviews."
	case 1:
		st.Message = "You have 1 pending review. Complete it to keep requesting services."
	default:
		st.Message = fmt.Sprintf("You have %d pending reviews. Complete them to keep requesting services.", n)
	}
	return st, nil
}

func withRemainingDays(in []domain.ReviewObligation, now time.Time) []domain.ReviewObligation {
	out := make([]domain.ReviewObligation, len(in))
	for i, o := range in {
		o.DaysRemaining = o.RemainingDays(now)
		out[i] = o
	}
	return out
}
