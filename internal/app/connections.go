package app

import (
	"context"
	"strings"

	"fixia/internal/domain"
)

type ConnectionService struct {
	repo domain.ObligationRepository
}

func NewConnectionService(r domain.ObligationRepository) *ConnectionService {
	return &ConnectionService{repo: r}
}

// Create opens a new pending service connection for the explorer. Callers are
// expected to have passed the blocking gate before reaching this.
func (s *ConnectionService) Create(ctx context.Context, explorerID, asUserID int64, serviceTitle string) (int64, error) {
	if asUserID <= 0 {
		return 0, &domain.ValidationError{Field: "as_user_id", Reason: "must be a positive id"}
	}
	if strings.TrimSpace(serviceTitle) == "" {
		return 0, &domain.ValidationError{Field: "service_title", Reason: "must not be empty"}
	}
	return s.repo.CreateConnection(ctx, domain.ServiceConnection{
		ExplorerID:   explorerID,
		ASUserID:     asUserID,
		ServiceTitle: strings.TrimSpace(serviceTitle),
		Status:       domain.ConnectionPending,
	})
}
