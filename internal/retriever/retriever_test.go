package retriever

import (
	"context"
	"errors"
	"fmt"
	"math"
	"reflect"
	"sort"
	"testing"

	"github.com/askpapers/askpapers/internal/store"
)

// stubEmbedder returns canned vectors per input text.
type stubEmbedder struct {
	vectors map[string][]float32
	dims    int
	err     error
}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	if v, ok := s.vectors[text]; ok {
		return v, nil
	}
	// unknown variants embed to an orthogonal direction
	v := make([]float32, s.dims)
	v[s.dims-1] = 1
	return v, nil
}

func (s *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for _, t := range texts {
		v, err := s.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (s *stubEmbedder) Dimensions() int { return s.dims }

// memorySearcher ranks fixture records by true cosine distance, id tie-break,
// mirroring the pgvector ordering contract.
type memorySearcher struct {
	records []store.PaperRecord
	err     error
}

func (m *memorySearcher) SearchChunks(ctx context.Context, vector []float32, limit int) ([]store.ChunkRow, error) {
	if m.err != nil {
		return nil, m.err
	}
	rows := make([]store.ChunkRow, 0, len(m.records))
	for _, rec := range m.records {
		rows = append(rows, store.ChunkRow{
			ID:       rec.ID,
			Title:    rec.Title,
			Summary:  rec.Summary,
			Chunk:    rec.Chunk,
			Distance: cosineDistance(vector, rec.Embedding),
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Distance != rows[j].Distance {
			return rows[i].Distance < rows[j].Distance
		}
		return rows[i].ID < rows[j].ID
	})
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func cosineDistance(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}

func fixtureRetriever(records []store.PaperRecord) (*Retriever, *memorySearcher) {
	searcher := &memorySearcher{records: records}
	emb := &stubEmbedder{dims: 2, vectors: map[string][]float32{"perovskite": {1, 0}}}
	return New(emb, searcher, nil), searcher
}

func threeRecordFixture() []store.PaperRecord {
	return []store.PaperRecord{
		{ID: 1, Title: "Paper A", Chunk: "A", Embedding: []float32{1, 0}},
		{ID: 2, Title: "Paper B", Chunk: "B", Embedding: []float32{0, 1}},
		{ID: 3, Title: "Paper C", Chunk: "C", Embedding: []float32{0.7, 0.7}},
	}
}

func TestRetrieveRanksByDistance(t *testing.T) {
	r, _ := fixtureRetriever(threeRecordFixture())

	docs, err := r.Retrieve(context.Background(), "perovskite", 2)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 docs, got %d", len(docs))
	}
	if docs[0].Chunk != "A" || docs[1].Chunk != "C" {
		t.Fatalf("expected chunks [A C], got [%s %s]", docs[0].Chunk, docs[1].Chunk)
	}
	if docs[0].SimilarityScore < docs[1].SimilarityScore {
		t.Fatalf("scores not descending: %f < %f", docs[0].SimilarityScore, docs[1].SimilarityScore)
	}
	// exact match has distance 0, so similarity 1
	if math.Abs(docs[0].SimilarityScore-1) > 1e-6 {
		t.Fatalf("expected similarity 1 for exact match, got %f", docs[0].SimilarityScore)
	}
}

func TestRetrieveReturnsMinKN(t *testing.T) {
	r, _ := fixtureRetriever(threeRecordFixture())

	docs, err := r.Retrieve(context.Background(), "perovskite", 5)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(docs) != 3 {
		t.Fatalf("expected all 3 docs for k=5, got %d", len(docs))
	}
}

func TestRetrieveEmptyStore(t *testing.T) {
	r, _ := fixtureRetriever(nil)

	docs, err := r.Retrieve(context.Background(), "perovskite", 5)
	if err != nil {
		t.Fatalf("empty store should not error: %v", err)
	}
	if len(docs) != 0 {
		t.Fatalf("expected empty result, got %d docs", len(docs))
	}
}

func TestRetrieveInvalidParams(t *testing.T) {
	r, _ := fixtureRetriever(threeRecordFixture())

	if _, err := r.Retrieve(context.Background(), "", 5); !errors.Is(err, ErrInvalidQuery) {
		t.Fatalf("blank query: expected ErrInvalidQuery, got %v", err)
	}
	if _, err := r.Retrieve(context.Background(), "   ", 5); !errors.Is(err, ErrInvalidQuery) {
		t.Fatalf("whitespace query: expected ErrInvalidQuery, got %v", err)
	}
	if _, err := r.Retrieve(context.Background(), "perovskite", 0); !errors.Is(err, ErrInvalidQuery) {
		t.Fatalf("k=0: expected ErrInvalidQuery, got %v", err)
	}
	if _, err := r.Retrieve(context.Background(), "perovskite", -1); !errors.Is(err, ErrInvalidQuery) {
		t.Fatalf("k=-1: expected ErrInvalidQuery, got %v", err)
	}
}

func TestRetrieveStoreFailure(t *testing.T) {
	r, searcher := fixtureRetriever(threeRecordFixture())
	searcher.err = fmt.Errorf("connection refused")

	_, err := r.Retrieve(context.Background(), "perovskite", 2)
	var storeErr *StoreError
	if !errors.As(err, &storeErr) {
		t.Fatalf("expected StoreError, got %v", err)
	}
	if storeErr.Unwrap().Error() != "connection refused" {
		t.Fatalf("unexpected wrapped error: %v", storeErr.Unwrap())
	}
}

func TestRetrieveIdempotent(t *testing.T) {
	r, _ := fixtureRetriever(threeRecordFixture())

	first, err := r.Retrieve(context.Background(), "perovskite", 3)
	if err != nil {
		t.Fatalf("first Retrieve: %v", err)
	}
	second, err := r.Retrieve(context.Background(), "perovskite", 3)
	if err != nil {
		t.Fatalf("second Retrieve: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("consecutive calls differ:\n%v\n%v", first, second)
	}
}

func TestExpandQuery(t *testing.T) {
	variants := ExpandQuery("perovskite")
	if len(variants) != 4 {
		t.Fatalf("expected 4 variants, got %d", len(variants))
	}
	if variants[0] != "perovskite" {
		t.Fatalf("first variant must be the original query, got %q", variants[0])
	}
}

func TestRetrieveExpandedMergesBestScores(t *testing.T) {
	r, _ := fixtureRetriever(threeRecordFixture())

	docs, err := r.RetrieveExpanded(context.Background(), "perovskite", 2)
	if err != nil {
		t.Fatalf("RetrieveExpanded: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 docs, got %d", len(docs))
	}
	// the exact-match variant dominates, so A still ranks first
	if docs[0].Chunk != "A" {
		t.Fatalf("expected chunk A first, got %s", docs[0].Chunk)
	}
	for i := 1; i < len(docs); i++ {
		if docs[i-1].SimilarityScore < docs[i].SimilarityScore {
			t.Fatalf("merged results not sorted by score")
		}
	}
}
