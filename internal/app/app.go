package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"reviewlens/internal/analysis"
	"reviewlens/internal/store"
	"reviewlens/pkg/domain"
)

const (
	minReviewRunes     = 10
	maxReviewRunes     = 5000
	maxProductRunes    = 255
	defaultListLimit   = 50
	maxListLimit       = 100
	defaultCallTimeout = 2 * time.Minute
)

// Config holds runtime configuration for the core application.
type Config struct {
	DatabaseURL string
	Store       store.Store

	Sentiment analysis.SentimentClassifier
	KeyPoints analysis.KeyPointExtractor

	SentimentTimeout time.Duration
	KeyPointTimeout  time.Duration
}

// App wires the two analysis capabilities to the review store.
type App struct {
	store            store.Store
	sentiment        analysis.SentimentClassifier
	keyPoints        analysis.KeyPointExtractor
	sentimentTimeout time.Duration
	keyPointTimeout  time.Duration
}

// New constructs the application with database-backed storage by default.
func New(cfg Config) (*App, error) {
	dataStore := cfg.Store
	if dataStore == nil {
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("database URL required")
		}
		var err error
		dataStore, err = store.NewGormStore(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("init postgres store: %w", err)
		}
	}
	if cfg.Sentiment == nil {
		return nil, fmt.Errorf("sentiment classifier required")
	}
	if cfg.KeyPoints == nil {
		return nil, fmt.Errorf("key point extractor required")
	}
	sentimentTimeout := cfg.SentimentTimeout
	if sentimentTimeout <= 0 {
		sentimentTimeout = defaultCallTimeout
	}
	keyPointTimeout := cfg.KeyPointTimeout
	if keyPointTimeout <= 0 {
		keyPointTimeout = defaultCallTimeout
	}
	return &App{
		store:            dataStore,
		sentiment:        cfg.Sentiment,
		keyPoints:        cfg.KeyPoints,
		sentimentTimeout: sentimentTimeout,
		keyPointTimeout:  keyPointTimeout,
	}, nil
}

// AnalyzeRequest is the validated-input contract for one analysis.
type AnalyzeRequest struct {
	ReviewText  string
	ProductName string
}

// AnalyzeReview validates input, runs both capabilities concurrently,
// reconciles their outcomes into one record and persists it. Capability
// failures fold into the record's status; only validation and persistence
// failures are returned as errors.
func (a *App) AnalyzeReview(ctx context.Context, req AnalyzeRequest) (domain.Review, error) {
	text := strings.TrimSpace(req.ReviewText)
	productName := strings.TrimSpace(req.ProductName)
	if n := utf8.RuneCountInString(text); n < minReviewRunes || n > maxReviewRunes {
		return domain.Review{}, &ValidationError{
			Field:  "review_text",
			Reason: fmt.Sprintf("must be between %d and %d characters", minReviewRunes, maxReviewRunes),
		}
	}
	if utf8.RuneCountInString(productName) > maxProductRunes {
		return domain.Review{}, &ValidationError{
			Field:  "product_name",
			Reason: fmt.Sprintf("must be at most %d characters", maxProductRunes),
		}
	}

	outcome := a.runAnalyses(ctx, text, productName)
	draft := reconcile(text, productName, outcome)

	saved, err := a.store.CreateReview(draft)
	if err != nil {
		return domain.Review{}, fmt.Errorf("persist review: %w", err)
	}
	slog.Info("review analyzed",
		"review_id", saved.ID,
		"status", saved.AnalysisStatus,
		"sentiment", saved.Sentiment,
		"key_points", len(saved.KeyPoints),
	)
	return saved, nil
}

type analysisOutcome struct {
	sentiment    analysis.SentimentResult
	sentimentErr error
	keyPoints    []string
	keyPointsErr error
}

// runAnalyses fans out to both capabilities with independent timeouts.
// Closures always return nil so a failure on one side never cancels the
// other. Calls are detached from request cancellation: a client disconnect
// does not abort in-flight analysis and the late result is persisted as if
// the request had completed normally.
func (a *App) runAnalyses(ctx context.Context, text, productName string) analysisOutcome {
	base := context.WithoutCancel(ctx)
	var out analysisOutcome
	var g errgroup.Group
	g.Go(func() error {
		callCtx, cancel := context.WithTimeout(base, a.sentimentTimeout)
		defer cancel()
		out.sentiment, out.sentimentErr = a.sentiment.Classify(callCtx, text)
		return nil
	})
	g.Go(func() error {
		callCtx, cancel := context.WithTimeout(base, a.keyPointTimeout)
		defer cancel()
		out.keyPoints, out.keyPointsErr = a.keyPoints.Extract(callCtx, text, productName)
		return nil
	})
	_ = g.Wait()
	return out
}

// reconcile derives the closed status machine: completed when both sides
// succeeded, partial when exactly one did, failed when neither did. The
// status is fixed at construction and never transitions afterwards.
func reconcile(text, productName string, out analysisOutcome) domain.Review {
	draft := domain.Review{
		ReviewText:  text,
		ProductName: productName,
		KeyPoints:   []string{},
	}
	var failures []string
	if out.sentimentErr != nil {
		failures = append(failures, fmt.Sprintf("sentiment analysis failed: %s", out.sentimentErr))
		slog.Warn("sentiment capability failed", "err", out.sentimentErr)
	} else {
		score := out.sentiment.Score
		draft.Sentiment = out.sentiment.Label
		draft.SentimentScore = &score
	}
	if out.keyPointsErr != nil {
		failures = append(failures, fmt.Sprintf("key point extraction failed: %s", out.keyPointsErr))
		slog.Warn("key point capability failed", "err", out.keyPointsErr)
	} else if out.keyPoints != nil {
		draft.KeyPoints = out.keyPoints
	}

	switch len(failures) {
	case 0:
		draft.AnalysisStatus = domain.AnalysisCompleted
	case 1:
		draft.AnalysisStatus = domain.AnalysisPartial
	default:
		draft.AnalysisStatus = domain.AnalysisFailed
	}
	draft.ErrorMessage = strings.Join(failures, "; ")
	return draft
}

// GetReview returns a stored review or ErrReviewNotFound.
func (a *App) GetReview(id int64) (domain.Review, error) {
	review, ok, err := a.store.GetReview(id)
	if err != nil {
		return domain.Review{}, fmt.Errorf("load review: %w", err)
	}
	if !ok {
		return domain.Review{}, ErrReviewNotFound
	}
	return review, nil
}

// DeleteReview removes a stored review. Deleting an absent id yields
// ErrReviewNotFound, so a second delete of the same id cannot succeed.
func (a *App) DeleteReview(id int64) error {
	ok, err := a.store.DeleteReview(id)
	if err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	if !ok {
		return ErrReviewNotFound
	}
	return nil
}

// ListRequest carries raw listing parameters before normalization.
type ListRequest struct {
	Sentiment string
	Skip      int
	Limit     int
}

// ListReviews returns a page ordered newest-first and the total matching
// count. Skip is floored at zero; limit defaults to 50 and is clamped to
// 100 rather than rejected. Records without sentiment never match a
// sentiment filter.
func (a *App) ListReviews(req ListRequest) ([]domain.Review, int64, error) {
	filter := store.ReviewFilter{}
	if raw := strings.TrimSpace(req.Sentiment); raw != "" {
		sentiment, ok := domain.ParseSentiment(strings.ToLower(raw))
		if !ok {
			return nil, 0, ErrInvalidSentimentFilter
		}
		filter.Sentiment = sentiment
	}
	filter.Offset = req.Skip
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	filter.Limit = req.Limit
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	reviews, total, err := a.store.ListReviews(filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list reviews: %w", err)
	}
	return reviews, total, nil
}
