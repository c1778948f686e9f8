package domain

import (
	"strings"
	"time"
)

type Review struct {
	ID                   int64
	ConnectionID         int64
	ExplorerID           int64
	ASUserID             int64
	Rating               int
	Comment              string
	ServiceQualityRating *int
	PunctualityRating    *int
	CommunicationRating  *int
	ValueForMoneyRating  *int
	WouldHireAgain       bool
	RecommendToOthers    bool
	Photos               []string
	CreatedAt            time.Time
}

// ReviewSubmission is the client-supplied payload for one review.
type ReviewSubmission struct {
	ConnectionID         int64
	Rating               int
	Comment              string
	ServiceQualityRating *int
	PunctualityRating    *int
	CommunicationRating  *int
	ValueForMoneyRating  *int
	WouldHireAgain       bool
	RecommendToOthers    bool
	Photos               []string
}

// Validate enforces the mandatory fields: rating in [1,5], non-empty comment,
// and each sub-rating in [1,5] when present.
func (s ReviewSubmission) Validate() error {
	if s.ConnectionID <= 0 {
		return &ValidationError{Field: "connection_id", Reason: "must be a positive id"}
	}
	if s.Rating < 1 || s.Rating > 5 {
		return &ValidationError{Field: "rating", Reason: "must be between 1 and 5"}
	}
	if strings.TrimSpace(s.Comment) == "" {
		return &ValidationError{Field: "comment", Reason: "must not be empty"}
	}
	sub := []struct {
		field string
		v     *int
	}{
		{"service_quality_rating", s.ServiceQualityRating},
		{"punctuality_rating", s.PunctualityRating},
		{"communication_rating", s.CommunicationRating},
		{"value_for_money_rating", s.ValueForMoneyRating},
	}
	for _, sr := range sub {
		if sr.v != nil && (*sr.v < 1 || *sr.v > 5) {
			return &ValidationError{Field: sr.field, Reason: "must be between 1 and 5 when set"}
		}
	}
	return nil
}
