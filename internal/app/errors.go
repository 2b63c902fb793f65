package app

import (
	"errors"
	"fmt"
)

var (
	// ErrReviewNotFound indicates a lookup or delete hit an absent id.
	ErrReviewNotFound = errors.New("review not found")
	// ErrInvalidSentimentFilter indicates a listing filter outside the enum.
	ErrInvalidSentimentFilter = errors.New("invalid sentiment filter, must be: positive, negative, or neutral")
)

// ValidationError reports malformed client input. It is raised before any
// capability call and never persisted.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}
