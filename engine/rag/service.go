package rag

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/YorumAI/yorum-engine/engine/domain"
	"github.com/YorumAI/yorum-engine/engine/ingest"
	"github.com/YorumAI/yorum-engine/engine/provider"
	"github.com/YorumAI/yorum-engine/engine/scraper"
	"github.com/YorumAI/yorum-engine/engine/semantic"
	"github.com/YorumAI/yorum-engine/engine/sites"
	"github.com/YorumAI/yorum-engine/pkg/metrics"
	"github.com/YorumAI/yorum-engine/pkg/resilience"
)

// Timeouts bounds each external-process stage. A stage that overruns fails
// the whole request; no partial answer is returned.
type Timeouts struct {
	Fetch     time.Duration
	Index     time.Duration
	Synthesis time.Duration
	Overall   time.Duration
}

// DefaultTimeouts mirror the operational limits of the scraping and model
// collaborators.
var DefaultTimeouts = Timeouts{
	Fetch:     5 * time.Minute,
	Index:     2 * time.Minute,
	Synthesis: 2 * time.Minute,
	Overall:   10 * time.Minute,
}

// DefaultMaxReviews caps review ingestion when the request leaves it unset.
const DefaultMaxReviews = 100

// Service runs the query pipeline: URL resolution, optional ingestion and
// index rebuild, retrieval, and answer synthesis. The index snapshot is
// loaded once per question so a concurrent rebuild can never mix versions
// inside a single answer.
type Service struct {
	fetchers  *scraper.Registry
	builder   *ingest.Builder
	holder    *semantic.Holder
	embedder  provider.Embedder
	generator provider.Generator
	breaker   *resilience.Breaker
	timeouts  Timeouts
	topK      int
	log       *slog.Logger
}

// NewService wires the pipeline. breaker guards generator calls; pass
// resilience.NewBreaker(resilience.DefaultBreakerOpts) unless tuning.
func NewService(
	fetchers *scraper.Registry,
	builder *ingest.Builder,
	holder *semantic.Holder,
	embedder provider.Embedder,
	generator provider.Generator,
	breaker *resilience.Breaker,
	log *slog.Logger,
) *Service {
	return &Service{
		fetchers:  fetchers,
		builder:   builder,
		holder:    holder,
		embedder:  embedder,
		generator: generator,
		breaker:   breaker,
		timeouts:  DefaultTimeouts,
		topK:      semantic.DefaultTopK,
		log:       log,
	}
}

// SetTimeouts overrides the stage timeouts. Zero fields keep their defaults.
func (s *Service) SetTimeouts(t Timeouts) {
	if t.Fetch > 0 {
		s.timeouts.Fetch = t.Fetch
	}
	if t.Index > 0 {
		s.timeouts.Index = t.Index
	}
	if t.Synthesis > 0 {
		s.timeouts.Synthesis = t.Synthesis
	}
	if t.Overall > 0 {
		s.timeouts.Overall = t.Overall
	}
}

// Answer runs one question end to end. With a product URL the index is
// rebuilt from that product's reviews first; without one the last-built
// index is reused, failing with ErrEmptyIndex when none exists.
func (s *Service) Answer(ctx context.Context, q domain.Query) (*domain.AnswerResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeouts.Overall)
	defer cancel()

	start := time.Now()

	if err := domain.ValidateQuery(q); err != nil {
		return nil, err
	}

	if q.ProductURL != "" {
		if err := s.Ingest(ctx, q.ProductURL, q.MaxReviews); err != nil {
			metrics.Inc(metrics.WithLabels("queries_total", "status", "error"))
			return nil, err
		}
	}

	result, err := s.answerIndexed(ctx, q.Question)
	if err != nil {
		metrics.Inc(metrics.WithLabels("queries_total", "status", "error"))
		return nil, err
	}

	result.ProcessingTime = time.Since(start)
	metrics.Inc(metrics.WithLabels("queries_total", "status", "ok"))
	metrics.Observe("query_seconds", time.Since(start).Seconds())
	return result, nil
}

// Ingest resolves the URL, fetches its reviews and rebuilds the index.
func (s *Service) Ingest(ctx context.Context, productURL string, maxReviews int) error {
	res, err := sites.Resolve(productURL)
	if err != nil {
		return err
	}

	fetcher, err := s.fetchers.Lookup(res.ScraperID)
	if err != nil {
		return domain.NewCollaboratorError("fetch_reviews", err)
	}

	fetchCtx, cancel := context.WithTimeout(ctx, s.timeouts.Fetch)
	defer cancel()

	reviews, err := fetcher.FetchReviews(fetchCtx, scraper.FetchRequest{
		URL:        productURL,
		SiteKey:    res.ScraperID,
		MaxReviews: domain.ClampMaxReviews(maxReviews, DefaultMaxReviews),
	})
	if err != nil {
		return fmt.Errorf("ingest %s: %w", res.SiteName, err)
	}
	s.log.Info("reviews fetched", "site", res.SiteName, "count", len(reviews))

	indexCtx, cancel := context.WithTimeout(ctx, s.timeouts.Index)
	defer cancel()

	if _, err := s.builder.Rebuild(indexCtx, reviews); err != nil {
		return fmt.Errorf("index rebuild: %w", err)
	}
	return nil
}

// answerIndexed runs retrieval and synthesis against the current snapshot.
func (s *Service) answerIndexed(ctx context.Context, question string) (*domain.AnswerResult, error) {
	ix := s.holder.Current()
	if ix == nil {
		return nil, domain.ErrEmptyIndex
	}

	hits, err := s.retrieve(ctx, ix, question)
	if err != nil {
		return nil, err
	}

	answer, fellBack, err := s.synthesize(ctx, question, ix, hits)
	if err != nil {
		return nil, err
	}

	meta := map[string]any{
		"index_version": ix.Version,
		"top_k":         len(hits),
	}
	if fellBack {
		meta["extraction_fallback"] = true
	}
	return &domain.AnswerResult{
		Answer:       answer,
		Question:     question,
		TotalReviews: ix.ReviewCount,
		UsedChunks:   len(hits),
		Timestamp:    time.Now().UTC(),
		Metadata:     meta,
	}, nil
}

func (s *Service) retrieve(ctx context.Context, ix *semantic.Index, question string) ([]semantic.Hit, error) {
	vecs, err := s.embedder.Embed(ctx, []string{question})
	if err != nil {
		return nil, &domain.EmbeddingError{Wrapped: err}
	}
	if len(vecs) != 1 {
		return nil, &domain.EmbeddingError{
			Wrapped: fmt.Errorf("embedder returned %d vectors for one question", len(vecs)),
		}
	}
	return ix.Search(vecs[0], s.topK)
}

func (s *Service) synthesize(ctx context.Context, question string, ix *semantic.Index, hits []semantic.Hit) (string, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeouts.Synthesis)
	defer cancel()

	retrieved := make([]domain.Chunk, len(hits))
	for i, h := range hits {
		retrieved[i] = h.Chunk
	}
	stats := StatsFromChunks(retrieved, ix.ReviewCount, ix.Ratings)
	prompt := BuildPrompt(question, hits, stats)

	var raw string
	err := s.breaker.Call(ctx, func(ctx context.Context) error {
		var genErr error
		raw, genErr = s.generator.Generate(ctx, prompt)
		return genErr
	})
	if err != nil {
		return "", false, domain.NewCollaboratorError("generate", err)
	}

	answer, fellBack := ExtractAnswer(raw)
	if fellBack {
		s.log.Warn("section extraction fell back to raw answer", "question", question)
		metrics.Inc("extraction_fallbacks_total")
	}
	answer = FooterNote(answer, len(hits), ix.ChunkCount())
	return answer, fellBack, nil
}
