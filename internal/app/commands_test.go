package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"fixia/internal/app"
	"fixia/internal/domain"
)

func TestSubmit_PersistsAndClearsObligation(t *testing.T) {
	now := time.Now()
	repo := &fakeRepo{obligations: []domain.ReviewObligation{obligation(101, 7, now.Add(72 * time.Hour))}}
	cache := &fakeCache{store: map[string][]domain.ReviewObligation{"obligations:7": repo.obligations}}
	notifier := &fakeNotifier{}
	svc := app.NewReviewService(repo, cache, notifier)

	sub := domain.ReviewSubmission{
		ConnectionID:      101,
		Rating:            5,
		Comment:           "Great service, on time",
		WouldHireAgain:    true,
		RecommendToOthers: true,
	}
	if err := svc.Submit(context.Background(), 7, sub); err != nil {
		t.Fatalf("err: %v", err)
	}

	if len(repo.submitted) != 1 {
		t.Fatalf("expected 1 persisted review, got %d", len(repo.submitted))
	}
	rv := repo.submitted[0]
	if rv.ExplorerID != 7 || rv.ASUserID != 900+101 || rv.Rating != 5 {
		t.Fatalf("unexpected review: %+v", rv)
	}
	if len(repo.obligations) != 0 {
		t.Fatalf("obligation should be cleared, still have %d", len(repo.obligations))
	}
	if len(cache.dels) != 1 || cache.dels[0] != "obligations:7" {
		t.Fatalf("expected cache invalidation of obligations:7, got %v", cache.dels)
	}
	if len(notifier.reviews) != 1 || notifier.reviews[0] != 101 {
		t.Fatalf("expected review.received for 101, got %v", notifier.reviews)
	}
}

func TestSubmit_ValidationRejectedWithoutMutation(t *testing.T) {
	now := time.Now()
	repo := &fakeRepo{obligations: []domain.ReviewObligation{obligation(101, 7, now)}}
	svc := app.NewReviewService(repo, &fakeCache{}, nil)

	bad := []domain.ReviewSubmission{
		{ConnectionID: 101, Rating: 0, Comment: "ok"},
		{ConnectionID: 101, Rating: 6, Comment: "ok"},
		{ConnectionID: 101, Rating: 4, Comment: "   "},
	}
	for _, sub := range bad {
		err := svc.Submit(context.Background(), 7, sub)
		var ve *domain.ValidationError
		if !errors.As(err, &ve) {
			t.Fatalf("expected validation error for %+v, got %v", sub, err)
		}
	}
	if len(repo.submitted) != 0 || len(repo.obligations) != 1 {
		t.Fatalf("validation failures must not mutate state")
	}
}

func TestSubmit_UnknownConnectionIsNotFound(t *testing.T) {
	svc := app.NewReviewService(&fakeRepo{}, &fakeCache{}, nil)

	err := svc.Submit(context.Background(), 7, domain.ReviewSubmission{ConnectionID: 999, Rating: 4, Comment: "ok"})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSubmit_ConflictSurfacesAlreadyReviewed(t *testing.T) {
	now := time.Now()
	repo := &fakeRepo{
		obligations: []domain.ReviewObligation{obligation(101, 7, now)},
		submitErr:   domain.ErrAlreadyReviewed,
	}
	svc := app.NewReviewService(repo, &fakeCache{}, nil)

	err := svc.Submit(context.Background(), 7, domain.ReviewSubmission{ConnectionID: 101, Rating: 4, Comment: "ok"})
	if !errors.Is(err, domain.ErrAlreadyReviewed) {
		t.Fatalf("expected ErrAlreadyReviewed, got %v", err)
	}
}

func TestSubmit_NotifierFailureDoesNotFailSubmission(t *testing.T) {
	now := time.Now()
	repo := &fakeRepo{obligations: []domain.ReviewObligation{obligation(101, 7, now)}}
	svc := app.NewReviewService(repo, &fakeCache{}, &fakeNotifier{err: errors.New("notify down")})

	if err := svc.Submit(context.Background(), 7, domain.ReviewSubmission{ConnectionID: 101, Rating: 4, Comment: "ok"}); err != nil {
		t.Fatalf("notifier failure leaked: %v", err)
	}
	if len(repo.submitted) != 1 {
		t.Fatalf("review should still persist")
	}
}

func TestSweep_MaterializesObligations(t *testing.T) {
	done := time.Now().Add(-24 * time.Hour)
	repo := &fakeRepo{candidates: []domain.ServiceConnection{
		{ID: 301, ExplorerID: 7, ASUserID: 20, ServiceTitle: "Painting", Status: domain.ConnectionCompleted, ServiceCompletedAt: &done},
		{ID: 302, ExplorerID: 8, ASUserID: 21, ServiceTitle: "Gardening", Status: domain.ConnectionCompleted, ServiceCompletedAt: &done},
	}}
	cache := &fakeCache{}
	notifier := &fakeNotifier{}
	sw := app.NewSweepService(repo, cache, notifier, 7*24*time.Hour)

	cands, err := sw.Candidates(context.Background(), 100)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	for _, c := range cands {
		if err := sw.Materialize(context.Background(), c); err != nil {
			t.Fatalf("materialize %d: %v", c.ID, err)
		}
	}

	if len(repo.created) != 2 {
		t.Fatalf("expected 2 obligations created, got %d", len(repo.created))
	}
	if len(cache.dels) != 2 {
		t.Fatalf("expected per-explorer cache invalidation, got %v", cache.dels)
	}
	if len(notifier.reminders) != 2 {
		t.Fatalf("expected 2 reminders, got %d", len(notifier.reminders))
	}
}

func TestConnectionCreate_Validation(t *testing.T) {
	repo := &fakeRepo{}
	cs := app.NewConnectionService(repo)

	if _, err := cs.Create(context.Background(), 7, 0, "Electrical work"); err == nil {
		t.Fatalf("expected validation error for missing AS id")
	}
	if _, err := cs.Create(context.Background(), 7, 20, "  "); err == nil {
		t.Fatalf("expected validation error for blank title")
	}

	id, err := cs.Create(context.Background(), 7, 20, " Electrical work ")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if id == 0 || len(repo.connectionsNew) != 1 {
		t.Fatalf("connection not created")
	}
	if repo.connectionsNew[0].ServiceTitle != "Electrical work" {
		t.Fatalf("title not trimmed: %q", repo.connectionsNew[0].ServiceTitle)
	}
}
