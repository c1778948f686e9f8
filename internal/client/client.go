// Package client is a Go consumer of the explorer review API. It drives the
// same flow the web client does: load obligations and blocking status, submit
// reviews one at a time, and reconcile with the server after each response.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type Client struct {
	base  string
	token string
	hc    *http.Client
}

func New(base, token string) (*Client, error) {
	if base == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if token == "" {
		return nil, fmt.Errorf("bearer token is required")
	}
	return &Client{
		base:  strings.TrimRight(base, "/"),
		token: token,
		hc:    &http.Client{Timeout: 15 * time.Second},
	}, nil
}

var (
	ErrUnauthorized = errors.New("client: unauthorized")
	ErrNotFound     = errors.New("client: not found")
	ErrConflict     = errors.New("client: already reviewed")
)

// ValidationError mirrors the server's field-level problem response.
type ValidationError struct {
	Field  string
	Detail string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Detail)
}

type Obligation struct {
	ConnectionID          int64     `json:"connection_id"`
	ASUserID              int64     `json:"as_user_id"`
	ASName                string    `json:"as_name"`
	ASLastName            string    `json:"as_last_name"`
	ASProfileImage        *string   `json:"as_profile_image,omitempty"`
	VerificationStatus    string    `json:"verification_status"`
	ServiceTitle          string    `json:"service_title"`
	ServiceCompletedAt    time.Time `json:"service_completed_at"`
	FinalAgreedPrice      *float64  `json:"final_agreed_price,omitempty"`
	ReviewDueDate         time.Time `json:"review_due_date"`
	DaysRemaining         int       `json:"days_remaining"`
	IsBlockingNewServices bool      `json:"is_blocking_new_services"`
}

type BlockingStatus struct {
	IsBlocked       bool   `json:"is_blocked"`
	Message         string `json:"message"`
	ObligationCount int    `json:"obligation_count"`
}

type ReviewInput struct {
	ConnectionID         int64    `json:"connection_id"`
	Rating               int      `json:"rating"`
	Comment              string   `json:"comment"`
	ServiceQualityRating *int     `json:"service_quality_rating,omitempty"`
	PunctualityRating    *int     `json:"punctuality_rating,omitempty"`
	CommunicationRating  *int     `json:"communication_rating,omitempty"`
	ValueForMoneyRating  *int     `json:"value_for_money_rating,omitempty"`
	WouldHireAgain       bool     `json:"would_hire_again"`
	RecommendToOthers    bool     `json:"recommend_to_others"`
	ReviewPhotos         []string `json:"review_photos,omitempty"`
}

func (c *Client) Obligations(ctx context.Context) ([]Obligation, error) {
	var out []Obligation
	if err := c.get(ctx, "/api/explorer/review-obligations", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) BlockingStatus(ctx context.Context) (BlockingStatus, error) {
	var out BlockingStatus
	if err := c.get(ctx, "/api/explorer/blocking-status", &out); err != nil {
		return BlockingStatus{}, err
	}
	return out, nil
}

func (c *Client) SubmitReview(ctx context.Context, in ReviewInput) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/api/explorer/reviews", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusCreated, http.StatusOK:
		io.Copy(io.Discard, resp.Body)
		return nil
	case http.StatusBadRequest:
		var p struct {
			Field  string `json:"field"`
			Detail string `json:"detail"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&p)
		return &ValidationError{Field: p.Field, Detail: p.Detail}
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	default:
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("bad status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "fixia-client/1.0")
	return req, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return json.NewDecoder(resp.Body).Decode(out)
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusNotFound:
		return ErrNotFound
	default:
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("bad status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
}
