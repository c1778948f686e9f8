package domain

import (
	"context"
	"time"
)

type ObligationRepository interface {
	// Write paths
	SubmitReview(ctx context.Context, rv Review) error
	CreateObligation(ctx context.Context, connectionID, explorerID int64, due time.Time) error
	CreateConnection(ctx context.Context, c ServiceConnection) (int64, error)

	// Read paths
	ListObligations(ctx context.Context, explorerID int64) ([]ReviewObligation, error)
	GetObligation(ctx context.Context, explorerID, connectionID int64) (ReviewObligation, error)
	ListCompletedWithoutReview(ctx context.Context, limit int) ([]ServiceConnection, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

// Notifier delivers events to the platform notification service.
// Callers treat both as best-effort.
type Notifier interface {
	ReviewReceived(ctx context.Context, asUserID, connectionID int64, rating int) error
	ObligationReminder(ctx context.Context, explorerID, connectionID int64, due time.Time) error
}
