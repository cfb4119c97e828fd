// Package domain holds the core data model shared by the review-analysis
// pipeline: reviews, chunks, queries, results, and the error taxonomy.
package domain

import "time"

// Review is a single user-submitted product review. Immutable once fetched;
// created by a scraper, consumed by the chunker.
type Review struct {
	ID         string    `json:"id"`
	Text       string    `json:"text"`
	Rating     int       `json:"rating,omitempty"` // 1..5, 0 when unknown
	User       string    `json:"user,omitempty"`
	Timestamp  time.Time `json:"timestamp,omitempty"`
	SourceSite string    `json:"source_site"`
}

// Chunk is the retrieval unit: a bounded span of review text with provenance.
type Chunk struct {
	ID              string   `json:"id"`
	Text            string   `json:"text"`
	SourceReviewIDs []string `json:"source_review_ids"`
	Seq             int      `json:"seq"`
}

// Query is one question against the indexed reviews.
type Query struct {
	Question   string `json:"question"`
	ProductURL string `json:"product_url,omitempty"`
	MaxReviews int    `json:"max_reviews,omitempty"`
}

// AnswerResult is the outcome of a successful query.
type AnswerResult struct {
	Answer         string         `json:"answer"`
	Question       string         `json:"question"`
	TotalReviews   int            `json:"total_reviews"`
	UsedChunks     int            `json:"used_chunks"`
	ProcessingTime time.Duration  `json:"processing_time"`
	Timestamp      time.Time      `json:"timestamp"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// ItemResult tags one batch entry as either an answer or a failure.
// Exactly one of Answer/Err is set.
type ItemResult struct {
	Question string        `json:"question"`
	Success  bool          `json:"success"`
	Answer   *AnswerResult `json:"answer,omitempty"`
	Err      error         `json:"-"`
	ErrMsg   string        `json:"error,omitempty"`
}

// BatchResult aggregates an ordered list of per-question outcomes.
// Success is true iff at least one question succeeded.
type BatchResult struct {
	Success             bool          `json:"success"`
	Results             []ItemResult  `json:"results"`
	Total               int           `json:"total_questions"`
	Succeeded           int           `json:"successful_questions"`
	Failed              int           `json:"failed_questions"`
	TotalProcessingTime time.Duration `json:"total_processing_time"`
	Timestamp           time.Time     `json:"timestamp"`
}

// ProductStats summarizes the rating distribution of a review set. Feeds the
// generation prompt so the model sees the overall sentiment picture.
type ProductStats struct {
	AverageRating float64 `json:"average_rating"`
	TotalReviews  int     `json:"total_reviews"`
	Positive      int     `json:"positive"`
	Negative      int     `json:"negative"`
	Neutral       int     `json:"neutral"`
}
