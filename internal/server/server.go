package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"reviewlens/internal/app"
	"reviewlens/internal/ratelimit"
	"reviewlens/internal/util"
	"reviewlens/pkg/domain"
)

// Config wires required dependencies for the HTTP server.
type Config struct {
	App *app.App

	AllowedOrigins    []string
	TrustedProxyCIDRs []string

	// Analyze-endpoint rate limiting; disabled when the limit is zero.
	RedisAddr                 string
	RedisPassword             string
	AnalyzeRateLimitPerMinute int
}

// Server exposes the HTTP endpoints for review analysis and history.
type Server struct {
	app            *app.App
	mux            *http.ServeMux
	allowedOrigins []string
	trustedProxies *util.TrustedProxies
	analyzeLimiter *ratelimit.FixedWindowLimiter
}

// New constructs the server with routes configured.
func New(cfg Config) (*Server, error) {
	if cfg.App == nil {
		return nil, fmt.Errorf("app is required")
	}
	trusted, err := util.NewTrustedProxies(cfg.TrustedProxyCIDRs)
	if err != nil {
		return nil, fmt.Errorf("parse trusted proxies: %w", err)
	}
	var limiter *ratelimit.FixedWindowLimiter
	if cfg.AnalyzeRateLimitPerMinute > 0 {
		limiter, err = ratelimit.NewRedisFixedWindowLimiter(
			cfg.RedisAddr, cfg.RedisPassword,
			"reviewlens:ratelimit:analyze",
			cfg.AnalyzeRateLimitPerMinute, time.Minute,
		)
		if err != nil {
			return nil, fmt.Errorf("init analyze limiter: %w", err)
		}
	}
	s := &Server{
		app:            cfg.App,
		mux:            http.NewServeMux(),
		allowedOrigins: cfg.AllowedOrigins,
		trustedProxies: trusted,
		analyzeLimiter: limiter,
	}
	s.routes()
	return s, nil
}

// Router returns the configured handler with the middleware chain applied.
func (s *Server) Router() http.Handler {
	var handler http.Handler = s.mux
	handler = util.WithRequestLog(handler)
	handler = util.WithRequestID(handler)
	handler = util.WithCORS(s.allowedOrigins, handler)
	handler = util.WithSecurityHeaders(handler)
	return handler
}

func (s *Server) routes() {
	s.mux.HandleFunc("/", s.handleHealth)
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/analyze-review", s.handleAnalyzeReview)
	s.mux.HandleFunc("/api/reviews", s.handleReviews)
	s.mux.HandleFunc("/api/reviews/", s.handleReviewByID)
}

// handleHealth reports liveness only; it deliberately touches neither the
// store nor the capabilities.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/health" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "review-analyzer-api",
	})
}

type analyzeRequest struct {
	ReviewText  string `json:"review_text"`
	ProductName string `json:"product_name,omitempty"`
}

type analysisResponse struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Data    *domain.Review `json:"data,omitempty"`
}

type reviewListResponse struct {
	Success bool            `json:"success"`
	Total   int64           `json:"total"`
	Reviews []domain.Review `json:"reviews"`
}

func (s *Server) handleAnalyzeReview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if s.analyzeLimiter != nil {
		key := util.ClientIP(r, s.trustedProxies)
		if !s.analyzeLimiter.Allow(key) {
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "too many analysis requests")
			return
		}
	}
	var req analyzeRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	review, err := s.app.AnalyzeReview(r.Context(), app.AnalyzeRequest{
		ReviewText:  req.ReviewText,
		ProductName: req.ProductName,
	})
	if err != nil {
		var vErr *app.ValidationError
		if errors.As(err, &vErr) {
			writeError(w, http.StatusUnprocessableEntity, vErr.Error())
			return
		}
		util.LoggerFromContext(r.Context()).Error("analyze review failed", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to analyze review")
		return
	}
	writeJSON(w, http.StatusCreated, analysisResponse{
		Success: true,
		Message: analyzeMessage(review.AnalysisStatus),
		Data:    &review,
	})
}

func analyzeMessage(status domain.AnalysisStatus) string {
	switch status {
	case domain.AnalysisCompleted:
		return "Review analyzed successfully"
	case domain.AnalysisPartial:
		return "Review analysis partially completed"
	default:
		return "Review analysis failed"
	}
}

func (s *Server) handleReviews(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	query := r.URL.Query()
	skip, _ := strconv.Atoi(query.Get("skip"))
	limit, _ := strconv.Atoi(query.Get("limit"))
	reviews, total, err := s.app.ListReviews(app.ListRequest{
		Sentiment: query.Get("sentiment"),
		Skip:      skip,
		Limit:     limit,
	})
	if err != nil {
		if errors.Is(err, app.ErrInvalidSentimentFilter) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		util.LoggerFromContext(r.Context()).Error("list reviews failed", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to fetch reviews")
		return
	}
	writeJSON(w, http.StatusOK, reviewListResponse{
		Success: true,
		Total:   total,
		Reviews: reviews,
	})
}

// /api/reviews/{id}
func (s *Server) handleReviewByID(w http.ResponseWriter, r *http.Request) {
	rawID := strings.TrimPrefix(r.URL.Path, "/api/reviews/")
	if rawID == "" || strings.Contains(rawID, "/") {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid review id")
		return
	}
	switch r.Method {
	case http.MethodGet:
		review, err := s.app.GetReview(id)
		if err != nil {
			s.writeReviewError(w, r, id, err, "fetch")
			return
		}
		writeJSON(w, http.StatusOK, analysisResponse{
			Success: true,
			Message: "Review retrieved successfully",
			Data:    &review,
		})
	case http.MethodDelete:
		if err := s.app.DeleteReview(id); err != nil {
			s.writeReviewError(w, r, id, err, "delete")
			return
		}
		writeJSON(w, http.StatusOK, analysisResponse{
			Success: true,
			Message: fmt.Sprintf("Review %d deleted successfully", id),
		})
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) writeReviewError(w http.ResponseWriter, r *http.Request, id int64, err error, action string) {
	if errors.Is(err, app.ErrReviewNotFound) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("review with id %d not found", id))
		return
	}
	util.LoggerFromContext(r.Context()).Error(action+" review failed", "review_id", id, "err", err)
	writeError(w, http.StatusInternalServerError, "failed to "+action+" review")
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "error": msg})
}
