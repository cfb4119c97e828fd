package semantic

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/YorumAI/yorum-engine/engine/domain"
)

func testIndex(t *testing.T, vectors [][]float32) *Index {
	t.Helper()
	chunks := make([]domain.Chunk, len(vectors))
	for i := range vectors {
		chunks[i] = domain.Chunk{
			ID:   fmt.Sprintf("c%d", i),
			Text: fmt.Sprintf("chunk %d", i),
			Seq:  i,
		}
	}
	ix, err := NewIndex(chunks, vectors, len(vectors), 1)
	if err != nil {
		t.Fatalf("NewIndex: %v", err)
	}
	return ix
}

func TestSearch_RanksBySimilarity(t *testing.T) {
	ix := testIndex(t, [][]float32{
		{0, 1, 0},
		{1, 0, 0},
		{0.9, 0.1, 0},
	})

	hits, err := ix.Search([]float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("got %d hits, want 2", len(hits))
	}
	if hits[0].Chunk.Seq != 1 {
		t.Errorf("best hit Seq = %d, want 1", hits[0].Chunk.Seq)
	}
	if hits[0].Score < hits[1].Score {
		t.Errorf("scores increase: %f then %f", hits[0].Score, hits[1].Score)
	}
}

func TestSearch_TieBreaksBySeq(t *testing.T) {
	ix := testIndex(t, [][]float32{
		{1, 0},
		{2, 0}, // same direction, same cosine
		{0, 1},
	})

	hits, err := ix.Search([]float32{1, 0}, 3)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if hits[0].Chunk.Seq != 0 || hits[1].Chunk.Seq != 1 {
		t.Errorf("tie order = [%d %d], want [0 1]", hits[0].Chunk.Seq, hits[1].Chunk.Seq)
	}
}

func TestSearch_TopKClamped(t *testing.T) {
	ix := testIndex(t, [][]float32{{1, 0}, {0, 1}})
	hits, err := ix.Search([]float32{1, 1}, 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 2 {
		t.Errorf("got %d hits, want 2", len(hits))
	}
}

func TestSearch_EmptyIndex(t *testing.T) {
	var ix *Index
	if _, err := ix.Search([]float32{1}, 5); !errors.Is(err, domain.ErrEmptyIndex) {
		t.Errorf("err = %v, want ErrEmptyIndex", err)
	}
}

func TestSearch_DimensionMismatch(t *testing.T) {
	ix := testIndex(t, [][]float32{{1, 0, 0}})
	_, err := ix.Search([]float32{1, 0}, 5)
	var ee *domain.EmbeddingError
	if !errors.As(err, &ee) {
		t.Fatalf("err = %v, want EmbeddingError", err)
	}
}

func TestCosine(t *testing.T) {
	if got := cosine([]float32{1, 0}, []float32{1, 0}); math.Abs(float64(got)-1) > 1e-6 {
		t.Errorf("identical vectors: %f, want 1", got)
	}
	if got := cosine([]float32{1, 0}, []float32{0, 1}); math.Abs(float64(got)) > 1e-6 {
		t.Errorf("orthogonal vectors: %f, want 0", got)
	}
	if got := cosine([]float32{0, 0}, []float32{1, 0}); got != 0 {
		t.Errorf("zero vector: %f, want 0", got)
	}
}

func TestNewIndex_Validation(t *testing.T) {
	if _, err := NewIndex([]domain.Chunk{{ID: "a"}}, nil, 0, 1); err == nil {
		t.Error("mismatched counts accepted")
	}
	if _, err := NewIndex(nil, nil, 0, 1); !errors.Is(err, domain.ErrEmptyIndex) {
		t.Errorf("empty index err = %v", err)
	}
	_, err := NewIndex(
		[]domain.Chunk{{ID: "a"}, {ID: "b"}},
		[][]float32{{1, 2}, {1}},
		2, 1,
	)
	var ee *domain.EmbeddingError
	if !errors.As(err, &ee) {
		t.Errorf("ragged vectors err = %v, want EmbeddingError", err)
	}
}

func TestHolder_SwapIsAtomic(t *testing.T) {
	h := NewHolder()
	if h.Current() != nil {
		t.Fatal("fresh holder should have nil snapshot")
	}

	ix := testIndex(t, [][]float32{{1, 0}})
	h.Swap(ix)
	if h.Current() != ix {
		t.Fatal("Current did not return swapped snapshot")
	}
}

func TestHolder_RebuildKeepsOldOnFailure(t *testing.T) {
	h := NewHolder()
	old := testIndex(t, [][]float32{{1, 0}})
	h.Swap(old)

	_, err := h.Rebuild(func(version uint64) (*Index, error) {
		return nil, errors.New("embed failed")
	})
	if err == nil {
		t.Fatal("expected rebuild error")
	}
	if h.Current() != old {
		t.Error("failed rebuild replaced the live snapshot")
	}
}

func TestHolder_ConcurrentSearchDuringRebuild(t *testing.T) {
	h := NewHolder()
	build := func(seed float32) func(uint64) (*Index, error) {
		return func(version uint64) (*Index, error) {
			chunks := []domain.Chunk{{ID: "c", Text: "t", Seq: 0}}
			ix, err := NewIndex(chunks, [][]float32{{seed, 1 - seed}}, 1, version)
			return ix, err
		}
	}
	if _, err := h.Rebuild(build(1)); err != nil {
		t.Fatalf("initial rebuild: %v", err)
	}

	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			if _, err := h.Rebuild(build(float32(i%2) * 0.5)); err != nil {
				t.Errorf("rebuild: %v", err)
				return
			}
		}
	}()

	for i := 0; i < 1000; i++ {
		ix := h.Current()
		// A loaded snapshot must be internally consistent even while the
		// writer swaps versions underneath.
		hits, err := ix.Search([]float32{1, 0}, 1)
		if err != nil {
			t.Fatalf("search during rebuild: %v", err)
		}
		if len(hits) != 1 {
			t.Fatalf("got %d hits", len(hits))
		}
		if len(ix.Vectors) != len(ix.Chunks) {
			t.Fatal("snapshot mixed versions")
		}
	}
	close(stop)
	wg.Wait()
}

func TestHolder_VersionsMonotonic(t *testing.T) {
	h := NewHolder()
	var last uint64
	for i := 0; i < 5; i++ {
		v := h.NextVersion()
		if v <= last {
			t.Fatalf("version %d not greater than %d", v, last)
		}
		last = v
	}
}
