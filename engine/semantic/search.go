package semantic

import (
	"math"
	"sort"

	"github.com/YorumAI/yorum-engine/engine/domain"
)

// DefaultTopK is the number of chunks retrieved per query.
const DefaultTopK = 5

// Hit is one retrieved chunk with its similarity score.
type Hit struct {
	Chunk domain.Chunk
	Score float32
}

// Search returns the topK most similar chunks for the query vector, scores
// non-increasing. Equal scores order by chunk Seq so results are stable
// across runs. Returns ErrEmptyIndex when the snapshot holds no vectors.
func (ix *Index) Search(query []float32, topK int) ([]Hit, error) {
	if ix == nil || len(ix.Vectors) == 0 {
		return nil, domain.ErrEmptyIndex
	}
	if len(query) != ix.Dim {
		return nil, &domain.EmbeddingError{WantDim: ix.Dim, GotDim: len(query)}
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	hits := make([]Hit, len(ix.Vectors))
	for i, v := range ix.Vectors {
		hits[i] = Hit{Chunk: ix.Chunks[i], Score: cosine(query, v)}
	}

	sort.SliceStable(hits, func(a, b int) bool {
		if hits[a].Score != hits[b].Score {
			return hits[a].Score > hits[b].Score
		}
		return hits[a].Chunk.Seq < hits[b].Chunk.Seq
	})

	if topK > len(hits) {
		topK = len(hits)
	}
	return hits[:topK], nil
}

// cosine computes cosine similarity. Zero vectors score 0 rather than NaN.
func cosine(a, b []float32) float32 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
