package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/YorumAI/yorum-engine/engine/domain"
	"github.com/YorumAI/yorum-engine/engine/provider"
	"github.com/YorumAI/yorum-engine/engine/semantic"
	"github.com/YorumAI/yorum-engine/pkg/fn"
	"github.com/YorumAI/yorum-engine/pkg/metrics"
)

// EmbedBatchSize bounds how many chunk texts go to the embedder per call.
const EmbedBatchSize = 100

// Builder turns a review set into a live index snapshot. The holder's
// rebuild lock serializes concurrent builds; queries keep reading the old
// snapshot until the swap.
type Builder struct {
	embedder provider.Embedder
	holder   *semantic.Holder
	mirror   *semantic.Mirror // optional
	chunker  ChunkerOpts
	log      *slog.Logger
}

// NewBuilder creates a Builder. mirror may be nil.
func NewBuilder(embedder provider.Embedder, holder *semantic.Holder, mirror *semantic.Mirror, log *slog.Logger) *Builder {
	return &Builder{
		embedder: embedder,
		holder:   holder,
		mirror:   mirror,
		log:      log,
	}
}

// Rebuild chunks, embeds and indexes reviews, then swaps the snapshot in.
// Empty review sets and review sets that chunk to nothing fail with
// ErrEmptyIndex so the previous snapshot stays live.
func (b *Builder) Rebuild(ctx context.Context, reviews []domain.Review) (*semantic.Index, error) {
	start := time.Now()

	ix, err := b.holder.Rebuild(func(version uint64) (*semantic.Index, error) {
		stage := fn.Then(
			fn.TracedStage("ingest.chunk", b.chunkStage()),
			fn.TracedStage("ingest.embed", b.embedStage(version, reviews)),
		)
		built, err := stage(ctx, reviews).Unwrap()
		if err != nil {
			return nil, err
		}
		// A provider that changed embedding dimension between rebuilds would
		// make old and new vectors incomparable.
		if prev := b.holder.Current(); prev != nil && built.Dim != prev.Dim {
			return nil, &domain.EmbeddingError{
				WantDim: prev.Dim, GotDim: built.Dim,
				Wrapped: fmt.Errorf("provider dimension changed between rebuilds"),
			}
		}
		return built, nil
	})
	if err != nil {
		return nil, err
	}

	metrics.Inc("index_rebuilds_total")
	metrics.Observe("index_rebuild_seconds", time.Since(start).Seconds())
	b.log.Info("index rebuilt",
		"version", ix.Version,
		"reviews", ix.ReviewCount,
		"chunks", ix.ChunkCount(),
		"dim", ix.Dim,
		"took", time.Since(start))

	if b.mirror != nil {
		if err := b.mirror.Publish(ctx, ix); err != nil {
			b.log.Warn("qdrant mirror publish failed", "version", ix.Version, "error", err)
		}
	}
	return ix, nil
}

func (b *Builder) chunkStage() fn.Stage[[]domain.Review, []domain.Chunk] {
	return func(_ context.Context, reviews []domain.Review) fn.Result[[]domain.Chunk] {
		chunks := ChunkReviews(reviews, b.chunker)
		if len(chunks) == 0 {
			return fn.Err[[]domain.Chunk](domain.ErrEmptyIndex)
		}
		return fn.Ok(chunks)
	}
}

func (b *Builder) embedStage(version uint64, reviews []domain.Review) fn.Stage[[]domain.Chunk, *semantic.Index] {
	ratings := make(map[string]int)
	for _, r := range reviews {
		if r.Rating > 0 {
			ratings[r.ID] = r.Rating
		}
	}
	return func(ctx context.Context, chunks []domain.Chunk) fn.Result[*semantic.Index] {
		vectors, err := b.embedAll(ctx, chunks)
		if err != nil {
			return fn.Err[*semantic.Index](err)
		}
		ix, err := semantic.NewIndex(chunks, vectors, len(reviews), version)
		if err != nil {
			return fn.Err[*semantic.Index](err)
		}
		ix.Ratings = ratings
		return fn.Ok(ix)
	}
}

func (b *Builder) embedAll(ctx context.Context, chunks []domain.Chunk) ([][]float32, error) {
	vectors := make([][]float32, 0, len(chunks))

	for lo := 0; lo < len(chunks); lo += EmbedBatchSize {
		hi := lo + EmbedBatchSize
		if hi > len(chunks) {
			hi = len(chunks)
		}
		texts := make([]string, hi-lo)
		for i, c := range chunks[lo:hi] {
			texts[i] = c.Text
		}

		batch, err := b.embedder.Embed(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embed batch %d..%d: %w", lo, hi, err)
		}
		if len(batch) != len(texts) {
			return nil, &domain.EmbeddingError{
				WantDim: len(texts), GotDim: len(batch),
				Wrapped: fmt.Errorf("embedder returned %d vectors for %d texts", len(batch), len(texts)),
			}
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}
