package domain

import "time"

// ReviewObligation is a pending mandatory review an explorer owes for a
// completed service connection. It exists only while no review has been
// submitted for the connection.
type ReviewObligation struct {
	ConnectionID          int64
	ExplorerID            int64
	ASUserID              int64
	ASName                string
	ASLastName            string
	ASProfileImage        *string
	VerificationStatus    string
	ServiceTitle          string
	ServiceCompletedAt    time.Time
	FinalAgreedPrice      *float64
	ReviewDueDate         time.Time
	IsBlockingNewServices bool
	DaysRemaining         int // derived at read time; negative when overdue
}

// RemainingDays counts whole days between now and the due date,
// truncated toward zero. Overdue obligations yield negative values.
func (o ReviewObligation) RemainingDays(now time.Time) int {
	return int(o.ReviewDueDate.Sub(now).Hours() / 24)
}

// BlockingStatus is derived, never stored.
type BlockingStatus struct {
	IsBlocked       bool
	Message         string
	ObligationCount int
}

type ConnectionStatus string

const (
	ConnectionPending   ConnectionStatus = "pending"
	ConnectionActive    ConnectionStatus = "active"
	ConnectionCompleted ConnectionStatus = "completed"
	ConnectionCancelled ConnectionStatus = "cancelled"
)

type ServiceConnection struct {
	ID                 int64
	ExplorerID         int64
	ASUserID           int64
	ServiceTitle       string
	Status             ConnectionStatus
	FinalAgreedPrice   *float64
	ServiceCompletedAt *time.Time
}
