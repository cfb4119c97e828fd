package rag

import (
	"context"
	"strings"
	"time"

	"github.com/YorumAI/yorum-engine/engine/domain"
)

// AnswerBatch answers questions sequentially against one shared index.
// Ingestion runs at most once, before the first question; per-question
// failures are recorded in the result list without aborting the rest.
// The aggregate Success flag is true iff at least one question succeeded.
func (s *Service) AnswerBatch(ctx context.Context, questions []string, productURL string, maxReviews int) (*domain.BatchResult, error) {
	if len(questions) == 0 {
		return nil, domain.NewValidationError("questions", "", domain.ErrMissingQuestions)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeouts.Overall)
	defer cancel()

	start := time.Now()

	if productURL != "" {
		if err := s.Ingest(ctx, productURL, maxReviews); err != nil {
			return nil, err
		}
	}

	out := &domain.BatchResult{
		Results: make([]domain.ItemResult, 0, len(questions)),
		Total:   len(questions),
	}

	for _, question := range questions {
		item := s.answerOne(ctx, question)
		if item.Success {
			out.Succeeded++
		} else {
			out.Failed++
		}
		out.Results = append(out.Results, item)
	}

	out.Success = out.Succeeded > 0
	out.TotalProcessingTime = time.Since(start)
	out.Timestamp = time.Now().UTC()

	s.log.Info("batch finished",
		"total", out.Total, "succeeded", out.Succeeded, "failed", out.Failed,
		"took", out.TotalProcessingTime)
	return out, nil
}

// answerOne captures a single question's outcome as a tagged result.
func (s *Service) answerOne(ctx context.Context, question string) domain.ItemResult {
	q := domain.Query{Question: question}
	if err := domain.ValidateQuery(q); err != nil {
		return failedItem(question, err)
	}

	itemStart := time.Now()
	result, err := s.answerIndexed(ctx, strings.TrimSpace(question))
	if err != nil {
		s.log.Warn("batch question failed", "question", question, "error", err)
		return failedItem(question, err)
	}
	result.ProcessingTime = time.Since(itemStart)

	return domain.ItemResult{
		Question: question,
		Success:  true,
		Answer:   result,
	}
}

func failedItem(question string, err error) domain.ItemResult {
	return domain.ItemResult{
		Question: question,
		Success:  false,
		Err:      err,
		ErrMsg:   err.Error(),
	}
}
