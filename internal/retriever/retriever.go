package retriever

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/askpapers/askpapers/internal/embedder"
	"github.com/askpapers/askpapers/internal/store"
	"github.com/askpapers/askpapers/models"
)

// ErrInvalidQuery is returned for blank queries or a non-positive top_k.
// The caller's fault; surfaced as a client error by the serving layer.
var ErrInvalidQuery = errors.New("retriever: invalid query")

// StoreError wraps a passage store failure (unreachable database or a failed
// similarity query). Retriable by the caller; never retried here.
type StoreError struct {
	Err error
}

func (e *StoreError) Error() string { return fmt.Sprintf("retriever: store: %v", e.Err) }
func (e *StoreError) Unwrap() error { return e.Err }

// ChunkSearcher is the passage store boundary: rank all chunks by cosine
// distance to the vector and return the closest limit rows, id tie-break.
type ChunkSearcher interface {
	SearchChunks(ctx context.Context, vector []float32, limit int) ([]store.ChunkRow, error)
}

// Retriever turns a free-text query into ranked, scored passages.
//
// Score convention: the store reports pgvector cosine distance; Retrieve maps
// it to similarity_score = 1 - distance, so results come back sorted by score
// descending. Each call is independent: no caching of query vectors or
// results, no internal retries.
type Retriever struct {
	embedder embedder.Embedder
	store    ChunkSearcher
	logger   *log.Logger
}

// New wires a Retriever from an embedder and a passage store. Both are shared
// read-only across concurrent calls.
func New(e embedder.Embedder, s ChunkSearcher, logger *log.Logger) *Retriever {
	if logger == nil {
		logger = log.New(log.Writer(), "[RETRIEVE] ", log.LstdFlags)
	}
	return &Retriever{embedder: e, store: s, logger: logger}
}

// Retrieve embeds the query and returns the top k chunks by similarity.
// Fewer than k stored chunks is not an error: min(k, N) rows come back, and
// an empty store yields an empty slice.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) ([]models.RetrievedDocument, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: empty query", ErrInvalidQuery)
	}
	if k <= 0 {
		return nil, fmt.Errorf("%w: top_k must be positive, got %d", ErrInvalidQuery, k)
	}

	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		if errors.Is(err, embedder.ErrEmptyInput) {
			return nil, fmt.Errorf("%w: empty query", ErrInvalidQuery)
		}
		return nil, err
	}

	rows, err := r.store.SearchChunks(ctx, vec, k)
	if err != nil {
		return nil, &StoreError{Err: err}
	}

	docs := make([]models.RetrievedDocument, 0, len(rows))
	for _, row := range rows {
		docs = append(docs, models.RetrievedDocument{
			ID:              row.ID,
			Title:           row.Title,
			Summary:         row.Summary,
			Chunk:           row.Chunk,
			SimilarityScore: 1 - row.Distance,
		})
	}
	r.logger.Printf("query %q: %d/%d chunks", truncate(query, 60), len(docs), k)
	return docs, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
