package ingest

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/YorumAI/yorum-engine/engine/domain"
	"github.com/YorumAI/yorum-engine/engine/semantic"
)

type mockEmbedder struct {
	dim       int
	calls     int
	batchSize []int
	fail      error
}

func (m *mockEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	m.calls++
	m.batchSize = append(m.batchSize, len(texts))
	if m.fail != nil {
		return nil, m.fail
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		vec := make([]float32, m.dim)
		if m.dim > 0 {
			vec[0] = float32(len(t))
		}
		out[i] = vec
	}
	return out, nil
}

func newBuilderWithHolder(embedder *mockEmbedder) (*Builder, *semantic.Holder) {
	h := semantic.NewHolder()
	b := NewBuilder(embedder, h, nil, slog.New(slog.DiscardHandler))
	return b, h
}

func someReviews(n int) []domain.Review {
	reviews := make([]domain.Review, n)
	for i := range reviews {
		reviews[i] = domain.Review{
			ID:         string(rune('a' + i%26)),
			Text:       strings.Repeat("Ürün hakkında uzunca bir değerlendirme cümlesi. ", 2),
			SourceSite: "trendyol",
		}
	}
	return reviews
}

func TestBuilder_RebuildSwapsSnapshot(t *testing.T) {
	b, h := newBuilderWithHolder(&mockEmbedder{dim: 4})

	ix, err := b.Rebuild(context.Background(), someReviews(3))
	if err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	if h.Current() != ix {
		t.Error("snapshot not installed")
	}
	if ix.Dim != 4 || ix.ReviewCount != 3 || ix.ChunkCount() == 0 {
		t.Errorf("index = dim %d reviews %d chunks %d", ix.Dim, ix.ReviewCount, ix.ChunkCount())
	}
	if ix.Version == 0 {
		t.Error("version not assigned")
	}
}

func TestBuilder_EmptyReviewsFail(t *testing.T) {
	b, h := newBuilderWithHolder(&mockEmbedder{dim: 4})

	_, err := b.Rebuild(context.Background(), nil)
	if !errors.Is(err, domain.ErrEmptyIndex) {
		t.Fatalf("err = %v, want ErrEmptyIndex", err)
	}
	if h.Current() != nil {
		t.Error("failed rebuild installed a snapshot")
	}
}

func TestBuilder_EmbedFailureKeepsOldSnapshot(t *testing.T) {
	embedder := &mockEmbedder{dim: 4}
	b, h := newBuilderWithHolder(embedder)

	old, err := b.Rebuild(context.Background(), someReviews(2))
	if err != nil {
		t.Fatalf("first rebuild: %v", err)
	}

	embedder.fail = errors.New("provider down")
	if _, err := b.Rebuild(context.Background(), someReviews(2)); err == nil {
		t.Fatal("expected rebuild error")
	}
	if h.Current() != old {
		t.Error("failed rebuild replaced live snapshot")
	}
}

func TestBuilder_DimensionChangeKeepsOldSnapshot(t *testing.T) {
	b, h := newBuilderWithHolder(&mockEmbedder{dim: 4})

	old, err := b.Rebuild(context.Background(), someReviews(2))
	if err != nil {
		t.Fatalf("first rebuild: %v", err)
	}

	// Same holder, provider now returning a different dimension.
	wider := NewBuilder(&mockEmbedder{dim: 8}, h, nil, slog.New(slog.DiscardHandler))
	_, err = wider.Rebuild(context.Background(), someReviews(2))

	var ee *domain.EmbeddingError
	if !errors.As(err, &ee) {
		t.Fatalf("err = %v, want EmbeddingError", err)
	}
	if ee.WantDim != 4 || ee.GotDim != 8 {
		t.Errorf("dims = %d/%d, want 4/8", ee.WantDim, ee.GotDim)
	}
	if h.Current() != old {
		t.Error("dimension mismatch replaced live snapshot")
	}
}

func TestBuilder_CarriesRatings(t *testing.T) {
	b, h := newBuilderWithHolder(&mockEmbedder{dim: 4})

	reviews := someReviews(3)
	reviews[0].Rating = 5
	reviews[1].Rating = 2
	// reviews[2] unrated

	if _, err := b.Rebuild(context.Background(), reviews); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	ratings := h.Current().Ratings
	if len(ratings) != 2 {
		t.Fatalf("Ratings = %v, want 2 rated entries", ratings)
	}
	if ratings[reviews[0].ID] != 5 || ratings[reviews[1].ID] != 2 {
		t.Errorf("Ratings = %v", ratings)
	}
}

func TestBuilder_EmbedsInBatches(t *testing.T) {
	embedder := &mockEmbedder{dim: 2}
	b, _ := newBuilderWithHolder(embedder)

	// Enough long reviews to exceed one embed batch of chunks.
	reviews := make([]domain.Review, EmbedBatchSize+10)
	for i := range reviews {
		reviews[i] = domain.Review{
			ID:         string(rune('a'+i%26)) + string(rune('0'+i%10)),
			Text:       strings.Repeat("Yeterince uzun bir yorum metni burada duruyor. ", 2),
			SourceSite: "trendyol",
		}
	}

	if _, err := b.Rebuild(context.Background(), reviews); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	if embedder.calls < 2 {
		t.Fatalf("embedder called %d times, want batching", embedder.calls)
	}
	for _, n := range embedder.batchSize {
		if n > EmbedBatchSize {
			t.Errorf("batch of %d exceeds limit %d", n, EmbedBatchSize)
		}
	}
}

func TestBuilder_VectorCountMismatch(t *testing.T) {
	b, _ := newBuilderWithHolder(&mockEmbedder{dim: 0})
	// dim 0 produces zero-length vectors; NewIndex rejects them.
	if _, err := b.Rebuild(context.Background(), someReviews(1)); err == nil {
		t.Fatal("expected error for zero-dimension vectors")
	}
}
