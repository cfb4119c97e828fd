package domain

import (
	"strings"
	"unicode/utf8"
)

const (
	minQuestionLength = 3
	maxQuestionLength = 500
	// MaxReviewsCap bounds how many reviews one request may pull from a site.
	MaxReviewsCap = 500
)

// ValidateQuery checks a single query before any collaborator is invoked.
func ValidateQuery(q Query) error {
	question := strings.TrimSpace(q.Question)
	if question == "" {
		return NewValidationError("question", q.Question, ErrMissingQuestion)
	}
	if utf8.RuneCountInString(question) < minQuestionLength {
		return NewValidationError("question", question, ErrMissingQuestion)
	}
	if utf8.RuneCountInString(question) > maxQuestionLength {
		return NewValidationError("question", question[:32]+"...", ErrMissingQuestion)
	}
	return nil
}

// ValidateReview rejects reviews with no usable text.
func ValidateReview(r Review) error {
	if strings.TrimSpace(r.Text) == "" {
		return NewValidationError("text", r.ID, ErrEmptyReview)
	}
	return nil
}

// ClampMaxReviews normalizes a requested review cap to [1, MaxReviewsCap],
// using def when unset.
func ClampMaxReviews(requested, def int) int {
	if requested <= 0 {
		return def
	}
	if requested > MaxReviewsCap {
		return MaxReviewsCap
	}
	return requested
}
