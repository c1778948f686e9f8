package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"fixia/internal/app"
	"fixia/internal/domain"
)

type Handlers struct {
	Q    *app.QueryService
	R    *app.ReviewService
	C    *app.ConnectionService
	Auth *Auth
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
	Field  string `json:"field,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Route("/api/explorer", func(r chi.Router) {
		r.Use(h.Auth.Middleware)
		r.Get("/review-obligations", h.listObligations)
		r.Get("/blocking-status", h.blockingStatus)
		r.Post("/reviews", h.submitReview)
		r.Group(func(r chi.Router) {
			r.Use(h.requireClear)
			r.Post("/connections", h.createConnection)
		})
	})
}

// requireClear gates actions that are off-limits while reviews are pending.
func (h *Handlers) requireClear(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		explorerID, ok := ExplorerID(r.Context())
		if !ok {
			writeProblem(w, http.StatusUnauthorized, "Unauthorized", "no authenticated explorer")
			return
		}
		st, err := h.Q.BlockingStatus(r.Context(), explorerID)
		if err != nil {
			writeProblem(w, http.StatusServiceUnavailable, "Service Unavailable", "could not check blocking status")
			return
		}
		if st.IsBlocked {
			writeProblem(w, http.StatusLocked, "Pending Reviews", st.Message)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	writeFieldProblem(w, status, title, detail, "")
}

func writeFieldProblem(w http.ResponseWriter, status int, title, detail, field string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail, Field: field}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

func writeJSONWithETag(w http.ResponseWriter, r *http.Request, v any) {
	etag, body := calcETagAndBody(v)
	// If client already has this version, short-circuit.
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag) // include ETag on 304
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write response body")
	}
}

// ---- wire DTOs ----

type obligationDTO struct {
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

type blockingStatusDTO struct {
	IsBlocked       bool   `json:"is_blocked"`
	Message         string `json:"message"`
	ObligationCount int    `json:"obligation_count"`
}

type reviewRequest struct {
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

type connectionRequest struct {
	ASUserID     int64  `json:"as_user_id"`
	ServiceTitle string `json:"service_title"`
}

func toObligationDTO(o domain.ReviewObligation) obligationDTO {
	return obligationDTO{
		ConnectionID:          o.ConnectionID,
		ASUserID:              o.ASUserID,
		ASName:                o.ASName,
		ASLastName:            o.ASLastName,
		ASProfileImage:        o.ASProfileImage,
		VerificationStatus:    o.VerificationStatus,
		ServiceTitle:          o.ServiceTitle,
		ServiceCompletedAt:    o.ServiceCompletedAt,
		FinalAgreedPrice:      o.FinalAgreedPrice,
		ReviewDueDate:         o.ReviewDueDate,
		DaysRemaining:         o.DaysRemaining,
		IsBlockingNewServices: o.IsBlockingNewServices,
	}
}

// ---- handlers ----

func (h *Handlers) listObligations(w http.ResponseWriter, r *http.Request) {
	explorerID, ok := ExplorerID(r.Context())
	if !ok {
		writeProblem(w, http.StatusUnauthorized, "Unauthorized", "no authenticated explorer")
		return
	}
	items, err := h.Q.ListObligations(r.Context(), explorerID)
	if err != nil {
		writeProblem(w, http.StatusServiceUnavailable, "Service Unavailable", "could not load review obligations")
		return
	}
	resp := make([]obligationDTO, 0, len(items))
	for _, o := range items {
		resp = append(resp, toObligationDTO(o))
	}
	writeJSONWithETag(w, r, resp)
}

func (h *Handlers) blockingStatus(w http.ResponseWriter, r *http.Request) {
	explorerID, ok := ExplorerID(r.Context())
	if !ok {
		writeProblem(w, http.StatusUnauthorized, "Unauthorized", "no authenticated explorer")
		return
	}
	st, err := h.Q.BlockingStatus(r.Context(), explorerID)
	if err != nil {
		writeProblem(w, http.StatusServiceUnavailable, "Service Unavailable", "could not compute blocking status")
		return
	}
	writeJSONWithETag(w, r, blockingStatusDTO{
		IsBlocked:       st.IsBlocked,
		Message:         st.Message,
		ObligationCount: st.ObligationCount,
	})
}

func (h *Handlers) submitReview(w http.ResponseWriter, r *http.Request) {
	explorerID, ok := ExplorerID(r.Context())
	if !ok {
		writeProblem(w, http.StatusUnauthorized, "Unauthorized", "no authenticated explorer")
		return
	}

	var req reviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Body", "body must be valid JSON")
		return
	}

	err := h.R.Submit(r.Context(), explorerID, domain.ReviewSubmission{
		ConnectionID:         req.ConnectionID,
		Rating:               req.Rating,
		Comment:              req.Comment,
		ServiceQualityRating: req.ServiceQualityRating,
		PunctualityRating:    req.PunctualityRating,
		CommunicationRating:  req.CommunicationRating,
		ValueForMoneyRating:  req.ValueForMoneyRating,
		WouldHireAgain:       req.WouldHireAgain,
		RecommendToOthers:    req.RecommendToOthers,
		Photos:               req.ReviewPhotos,
	})
	if err != nil {
		var ve *domain.ValidationError
		switch {
		case errors.As(err, &ve):
			writeFieldProblem(w, http.StatusBadRequest, "Validation Failed", ve.Reason, ve.Field)
		case errors.Is(err, domain.ErrNotFound):
			writeProblem(w, http.StatusNotFound, "Not Found", "no pending review obligation for this connection")
		case errors.Is(err, domain.ErrAlreadyReviewed):
			writeProblem(w, http.StatusConflict, "Conflict", "this connection has already been reviewed")
		default:
			log.Error().Err(err).Int64("connection_id", req.ConnectionID).Msg("review submission failed")
			writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "could not save review")
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": true})
}

func (h *Handlers) createConnection(w http.ResponseWriter, r *http.Request) {
	explorerID, ok := ExplorerID(r.Context())
	if !ok {
		writeProblem(w, http.StatusUnauthorized, "Unauthorized", "no authenticated explorer")
		return
	}

	var req connectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Body", "body must be valid JSON")
		return
	}

	id, err := h.C.Create(r.Context(), explorerID, req.ASUserID, req.ServiceTitle)
	if err != nil {
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			writeFieldProblem(w, http.StatusBadRequest, "Validation Failed", ve.Reason, ve.Field)
			return
		}
		log.Error().Err(err).Msg("create connection failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "could not create connection")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]any{"connection_id": id})
}
