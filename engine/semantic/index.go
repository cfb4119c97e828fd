// Package semantic owns the vector index: an immutable in-memory snapshot
// of chunk embeddings, the holder that swaps snapshots atomically, and
// cosine similarity retrieval over the current snapshot. An optional Qdrant
// mirror persists each snapshot for inspection.
package semantic

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/YorumAI/yorum-engine/engine/domain"
)

// Index is one immutable snapshot of embedded chunks. Queries read a single
// snapshot end to end, so a rebuild can never mix versions mid-retrieval.
type Index struct {
	Chunks      []domain.Chunk
	Vectors     [][]float32
	Dim         int
	Version     uint64
	BuiltAt     time.Time
	ReviewCount int
	// Ratings maps review ID to its star rating, for reviews that carry one.
	// Lets retrieval-time consumers recover the rating distribution of the
	// reviews a chunk set references.
	Ratings map[string]int
}

// ChunkCount returns the number of indexed chunks.
func (ix *Index) ChunkCount() int {
	if ix == nil {
		return 0
	}
	return len(ix.Chunks)
}

// NewIndex validates chunks against their vectors and builds a snapshot.
// Every vector must share the same dimension.
func NewIndex(chunks []domain.Chunk, vectors [][]float32, reviewCount int, version uint64) (*Index, error) {
	if len(chunks) != len(vectors) {
		return nil, fmt.Errorf("semantic: %d chunks but %d vectors", len(chunks), len(vectors))
	}
	if len(vectors) == 0 {
		return nil, domain.ErrEmptyIndex
	}
	dim := len(vectors[0])
	if dim == 0 {
		return nil, &domain.EmbeddingError{WantDim: 1, GotDim: 0}
	}
	for i, v := range vectors {
		if len(v) != dim {
			return nil, &domain.EmbeddingError{WantDim: dim, GotDim: len(v),
				Wrapped: fmt.Errorf("vector %d", i)}
		}
	}
	return &Index{
		Chunks:      chunks,
		Vectors:     vectors,
		Dim:         dim,
		Version:     version,
		BuiltAt:     time.Now().UTC(),
		ReviewCount: reviewCount,
	}, nil
}

// Holder hands out the current index snapshot and serializes rebuilds.
// Readers never block: Current is a single atomic load. Writers take the
// rebuild lock so only one rebuild runs at a time.
type Holder struct {
	current   atomic.Pointer[Index]
	rebuildMu sync.Mutex
	version   atomic.Uint64
}

// NewHolder creates an empty Holder. Current returns nil until the first
// successful Swap.
func NewHolder() *Holder {
	return &Holder{}
}

// Current returns the active snapshot, or nil if nothing has been indexed.
func (h *Holder) Current() *Index {
	return h.current.Load()
}

// NextVersion reserves a monotonically increasing version for a rebuild.
func (h *Holder) NextVersion() uint64 {
	return h.version.Add(1)
}

// Swap installs a new snapshot. In-flight queries keep the snapshot they
// already loaded.
func (h *Holder) Swap(ix *Index) {
	h.current.Store(ix)
}

// Rebuild serializes the build function and installs its result. The old
// snapshot stays live until build returns successfully; a failed build
// leaves the previous snapshot in place.
func (h *Holder) Rebuild(build func(version uint64) (*Index, error)) (*Index, error) {
	h.rebuildMu.Lock()
	defer h.rebuildMu.Unlock()

	ix, err := build(h.NextVersion())
	if err != nil {
		return nil, err
	}
	h.Swap(ix)
	return ix, nil
}
