package store

import "reviewlens/pkg/domain"

// ReviewFilter narrows and pages a listing. Sentiment is an exact enum
// match; empty means no filter. Offset/Limit are assumed normalized by the
// caller.
type ReviewFilter struct {
	Sentiment domain.Sentiment
	Offset    int
	Limit     int
}

// Store defines persistence operations for analyzed reviews.
// Records are immutable after creation; the only mutation is deletion.
type Store interface {
	// CreateReview persists a draft, assigning id and created_at, and
	// returns the saved record.
	CreateReview(draft domain.Review) (domain.Review, error)
	// GetReview returns the record and whether it exists.
	GetReview(id int64) (domain.Review, bool, error)
	// ListReviews returns a page ordered by created_at descending plus the
	// total count matching the filter.
	ListReviews(filter ReviewFilter) ([]domain.Review, int64, error)
	// DeleteReview removes the record, reporting whether a row existed.
	DeleteReview(id int64) (bool, error)
}
