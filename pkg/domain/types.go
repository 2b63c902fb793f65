package domain

import "time"

type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
)

// ParseSentiment maps a raw string onto the sentiment enum.
func ParseSentiment(raw string) (Sentiment, bool) {
	switch Sentiment(raw) {
	case SentimentPositive, SentimentNegative, SentimentNeutral:
		return Sentiment(raw), true
	default:
		return "", false
	}
}

type AnalysisStatus string

const (
	// AnalysisCompleted means both capabilities succeeded.
	AnalysisCompleted AnalysisStatus = "completed"
	// AnalysisPartial means exactly one capability succeeded.
	AnalysisPartial AnalysisStatus = "partial"
	// AnalysisFailed means both capabilities failed; the record is still kept.
	AnalysisFailed AnalysisStatus = "failed"
)

// Review is the persisted outcome of analyzing one product review.
// Sentiment and SentimentScore are absent together when the sentiment
// capability failed; KeyPoints is empty when extraction failed or the
// upstream genuinely found nothing.
type Review struct {
	ID             int64          `json:"id"`
	ReviewText     string         `json:"review_text"`
	ProductName    string         `json:"product_name,omitempty"`
	Sentiment      Sentiment      `json:"sentiment,omitempty"`
	SentimentScore *float64       `json:"sentiment_score,omitempty"`
	KeyPoints      []string       `json:"key_points"`
	AnalysisStatus AnalysisStatus `json:"analysis_status"`
	ErrorMessage   string         `json:"error_message,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}
