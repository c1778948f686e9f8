package app

import (
	"context"

	"github.com/rs/zerolog/log"

	"fixia/internal/domain"
)

type ReviewService struct {
	repo     domain.ObligationRepository
	cache    domain.Cache
	notifier domain.Notifier
}

func NewReviewService(r domain.ObligationRepository, c domain.Cache, n domain.Notifier) *ReviewService {
	return &ReviewService{repo: r, cache: c, notifier: n}
}

// Submit validates one review, persists it, and clears the originating
// obligation in a single repository transaction. The obligation must belong to
// the calling explorer; otherwise domain.ErrNotFound comes back untouched.
// A concurrent duplicate surfaces as domain.ErrAlreadyReviewed once the first
// submission commits.
func (s *ReviewService) Submit(ctx context.Context, explorerID int64, sub domain.ReviewSubmission) error {
	if err := sub.Validate(); err != nil {
		return err
	}

	ob, err := s.repo.GetObligation(ctx, explorerID, sub.ConnectionID)
	if err != nil {
		return err
	}

	rv := domain.Review{
		ConnectionID:         sub.ConnectionID,
		ExplorerID:           explorerID,
		ASUserID:             ob.ASUserID,
		Rating:               sub.Rating,
		Comment:              sub.Comment,
		ServiceQualityRating: sub.ServiceQualityRating,
		PunctualityRating:    sub.PunctualityRating,
		CommunicationRating:  sub.CommunicationRating,
		ValueForMoneyRating:  sub.ValueForMoneyRating,
		WouldHireAgain:       sub.WouldHireAgain,
		RecommendToOthers:    sub.RecommendToOthers,
		Photos:               sub.Photos,
	}
	if err := s.repo.SubmitReview(ctx, rv); err != nil {
		return err
	}

	// The obligation list changed; drop the explorer's cached reads.
	if s.cache != nil {
		_ = s.cache.Del(ctx, obligationsKey(explorerID))
	}

	// Best-effort: the professional hears about the new review, but a
	// notification failure never fails the submission.
	if s.notifier != nil {
		if nerr := s.notifier.ReviewReceived(ctx, ob.ASUserID, sub.ConnectionID, sub.Rating); nerr != nil {
			log.Warn().Err(nerr).
				Int64("connection_id", sub.ConnectionID).
				Int64("as_user_id", ob.ASUserID).
				Msg("review notification failed")
		}
	}

	return nil
}
