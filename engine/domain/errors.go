package domain

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for request validation and pipeline failures.
var (
	ErrMissingQuestion  = errors.New("question is required")
	ErrMissingQuestions = errors.New("questions list is required")
	ErrMissingURL       = errors.New("url is required")
	ErrEmptyIndex       = errors.New("no indexed chunks")
	ErrUnsupportedSite  = errors.New("unsupported site")
	ErrNotProductPage   = errors.New("not a product page")
	ErrEmptyReview      = errors.New("review text is empty")
)

// Stable error codes surfaced in the API error envelope.
const (
	CodeMissingQuestion  = "MISSING_QUESTION"
	CodeMissingQuestions = "MISSING_QUESTIONS"
	CodeMissingURL       = "MISSING_URL"
	CodeInvalidURL       = "INVALID_URL"
	CodeInternal         = "INTERNAL_ERROR"
)

// ValidationError wraps a sentinel with the offending field and value.
// Always reported to the caller, never retried.
type ValidationError struct {
	Field   string
	Value   string
	Wrapped error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s (value=%q)", e.Wrapped, e.Field, e.Value)
}

func (e *ValidationError) Unwrap() error { return e.Wrapped }

// NewValidationError creates a ValidationError.
func NewValidationError(field, value string, wrapped error) *ValidationError {
	return &ValidationError{Field: field, Value: value, Wrapped: wrapped}
}

// SiteError reports a URL that resolved to no supported site or to a
// non-product page. Carries the supported-site list for the caller.
type SiteError struct {
	URL            string
	SupportedSites []string
	Wrapped        error
}

func (e *SiteError) Error() string {
	return fmt.Sprintf("site: %s: %s", e.Wrapped, e.URL)
}

func (e *SiteError) Unwrap() error { return e.Wrapped }

// CollaboratorError reports a failed or timed-out external collaborator call
// (review fetch, embedding, generation). The captured output is surfaced as a
// diagnostic; the call is never retried by the core.
type CollaboratorError struct {
	Op      string // "fetch_reviews", "embed", "generate"
	Output  string
	Wrapped error
}

func (e *CollaboratorError) Error() string {
	if e.Output != "" {
		return fmt.Sprintf("collaborator %s: %v: %s", e.Op, e.Wrapped, e.Output)
	}
	return fmt.Sprintf("collaborator %s: %v", e.Op, e.Wrapped)
}

func (e *CollaboratorError) Unwrap() error { return e.Wrapped }

// NewCollaboratorError wraps err as a CollaboratorError for op.
func NewCollaboratorError(op string, err error) *CollaboratorError {
	return &CollaboratorError{Op: op, Wrapped: err}
}

// EmbeddingError reports an unreachable embedding provider or a dimension
// mismatch against a previously built index.
type EmbeddingError struct {
	WantDim int
	GotDim  int
	Wrapped error
}

func (e *EmbeddingError) Error() string {
	if e.WantDim != 0 && e.GotDim != 0 && e.WantDim != e.GotDim {
		return fmt.Sprintf("embedding: dimension mismatch: index has %d, provider returned %d", e.WantDim, e.GotDim)
	}
	return fmt.Sprintf("embedding: %v", e.Wrapped)
}

func (e *EmbeddingError) Unwrap() error { return e.Wrapped }

// ErrorCode maps an error to its stable API code.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrMissingQuestion):
		return CodeMissingQuestion
	case errors.Is(err, ErrMissingQuestions):
		return CodeMissingQuestions
	case errors.Is(err, ErrMissingURL):
		return CodeMissingURL
	case errors.Is(err, ErrUnsupportedSite), errors.Is(err, ErrNotProductPage):
		return CodeInvalidURL
	default:
		return CodeInternal
	}
}

// Envelope is the wire shape of a surfaced failure.
type Envelope struct {
	ErrorCode string  `json:"error_code"`
	Message   string  `json:"message"`
	Details   string  `json:"details,omitempty"`
	Timestamp float64 `json:"timestamp"`
}

// NewEnvelope builds a timestamped error envelope from err.
func NewEnvelope(err error) Envelope {
	env := Envelope{
		ErrorCode: ErrorCode(err),
		Message:   err.Error(),
		Timestamp: float64(time.Now().UnixNano()) / float64(time.Second),
	}
	var ce *CollaboratorError
	if errors.As(err, &ce) && ce.Output != "" {
		env.Details = ce.Output
	}
	return env
}
