package analysis

import (
	"context"
	"errors"

	"reviewlens/pkg/domain"
)

var (
	// ErrUpstreamTimeout indicates a capability call exceeded its deadline.
	ErrUpstreamTimeout = errors.New("upstream timeout")
	// ErrUpstreamUnavailable indicates the capability endpoint could not serve.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)

// SentimentResult is the outcome of one sentiment classification.
type SentimentResult struct {
	Label domain.Sentiment
	Score float64
}

// SentimentClassifier classifies raw review text.
// Input is already validated for length; adapters must not re-check it.
type SentimentClassifier interface {
	Classify(ctx context.Context, text string) (SentimentResult, error)
}

// KeyPointExtractor pulls short key points out of a review.
// productName biases extraction when present and may be empty.
// An empty slice with nil error is a valid "nothing found" success.
type KeyPointExtractor interface {
	Extract(ctx context.Context, text, productName string) ([]string, error)
}
