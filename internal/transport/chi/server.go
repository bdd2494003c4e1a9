// Package chi exposes the search pipeline over HTTP.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/hirestack/candidex/internal/domain"
	feedbackuc "github.com/hirestack/candidex/internal/usecase/feedback"
	healthuc "github.com/hirestack/candidex/internal/usecase/health"
	searchuc "github.com/hirestack/candidex/internal/usecase/search"
)

// Error codes returned in JSON error bodies.
const (
	codeBadRequest       = "bad_request"
	codeValidationFailed = "validation_failed"
	codeUnauthorized     = "unauthorized"
	codeRateLimited      = "rate_limited"
	codeInternalError    = "internal_error"
)

// Searcher is the search entry point, usually the caching decorator.
type Searcher interface {
	Search(ctx context.Context, req *searchuc.Request) (*searchuc.Response, error)
}

// SimilarFinder is the trigram name lookup, served uncached.
type SimilarFinder interface {
	SimilarByName(ctx context.Context, name string, threshold float64, limit int) ([]domain.SearchResult, error)
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server holds the HTTP handlers.
type Server struct {
	searcher      Searcher
	similar       SimilarFinder
	feedback      *feedbackuc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	defaultLimit  int
	maxLimit      int
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	searcher Searcher,
	similar SimilarFinder,
	feedback *feedbackuc.Service,
	health *healthuc.Service,
	defaultLimit, maxLimit int,
	logger *zap.Logger,
) *Server {
	s := &Server{
		searcher:     searcher,
		similar:      similar,
		feedback:     feedback,
		health:       health,
		logger:       logger,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidQuery, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrInvalidFilter, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrInvalidLimit, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrInvalidThreshold, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrTenantUnknown, http.StatusUnauthorized, codeUnauthorized),
		rateLimitHandler,
	}
	return s
}

// Routes mounts all API routes on the given router.
func (s *Server) Routes(r chi.Router) {
	r.Post("/v1/search", s.Search)
	r.Get("/v1/candidates/similar", s.SimilarByName)
	r.Post("/v1/feedback", s.RecordFeedback)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

// searchRequest is the POST /v1/search body.
type searchRequest struct {
	Query   string         `json:"query"`
	Filters *searchFilters `json:"filters"`
	Limit   *int           `json:"limit"`
}

// searchFilters mirrors domain.Filters on the wire. Null and absent fields
// are equivalent.
type searchFilters struct {
	Skills        []string `json:"skills"`
	Companies     []string `json:"companies"`
	MinExperience *float64 `json:"minExperience"`
	MaxExperience *float64 `json:"maxExperience"`
}

// Search handles POST /v1/search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	limit := s.defaultLimit
	if req.Limit != nil {
		limit = *req.Limit
	}
	if limit <= 0 || limit > s.maxLimit {
		writeError(w, http.StatusBadRequest, codeValidationFailed,
			"limit must be between 1 and "+strconv.Itoa(s.maxLimit))
		return
	}

	filters := domain.Filters{}
	if req.Filters != nil {
		filters = domain.Filters{
			Skills:        req.Filters.Skills,
			Companies:     req.Filters.Companies,
			MinExperience: req.Filters.MinExperience,
			MaxExperience: req.Filters.MaxExperience,
		}
		if filters.MinExperience != nil && filters.MaxExperience != nil &&
			*filters.MinExperience > *filters.MaxExperience {
			writeError(w, http.StatusBadRequest, codeValidationFailed,
				"minExperience must not exceed maxExperience")
			return
		}
	}

	if strings.TrimSpace(req.Query) == "" && filters.IsEmpty() {
		writeError(w, http.StatusBadRequest, codeValidationFailed,
			"query or filters required")
		return
	}

	resp, err := s.searcher.Search(r.Context(), &searchuc.Request{
		Query:   req.Query,
		Filters: filters,
		Limit:   limit,
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// similarResponse is the GET /v1/candidates/similar body.
type similarResponse struct {
	Results []domain.SearchResult `json:"results"`
	Total   int                   `json:"total"`
}

// SimilarByName handles GET /v1/candidates/similar.
func (s *Server) SimilarByName(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	name := strings.TrimSpace(q.Get("name"))
	if name == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "name is required")
		return
	}

	threshold := 0.3
	if raw := q.Get("threshold"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeValidationFailed, "threshold must be a number")
			return
		}
		threshold = v
	}

	limit := s.defaultLimit
	if raw := q.Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeValidationFailed, "limit must be an integer")
			return
		}
		limit = v
	}

	results, err := s.similar.SimilarByName(r.Context(), name, threshold, limit)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	if results == nil {
		results = []domain.SearchResult{}
	}
	writeJSON(w, http.StatusOK, similarResponse{Results: results, Total: len(results)})
}

// feedbackRequest is the POST /v1/feedback body.
type feedbackRequest struct {
	Query       string `json:"query"`
	CandidateID string `json:"candidateId"`
	Action      string `json:"action"`
	Position    int    `json:"position"`
}

// RecordFeedback handles POST /v1/feedback.
func (s *Server) RecordFeedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	tenant, _ := TenantFromContext(r.Context())
	eventID, err := s.feedback.Record(r.Context(), feedbackuc.Request{
		TenantID:    tenant.ID,
		Query:       req.Query,
		CandidateID: req.CandidateID,
		Action:      req.Action,
		Position:    req.Position,
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"eventId": eventID})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidQuery,
		domain.ErrInvalidFilter,
		domain.ErrInvalidLimit,
		domain.ErrInvalidThreshold,
		domain.ErrTenantUnknown,
		domain.ErrRateLimited,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// rateLimitHandler handles rate limit rejections with the retry headers.
func rateLimitHandler(w http.ResponseWriter, err error, msg string) bool {
	if !errors.Is(err, domain.ErrRateLimited) {
		return false
	}
	var rle *domain.RateLimitError
	if errors.As(err, &rle) {
		setRateLimitHeaders(w, rle.Limit, 0, rle.RetryAfter)
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(rle.RetryAfter)))
	}
	writeError(w, http.StatusTooManyRequests, codeRateLimited, msg)
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
