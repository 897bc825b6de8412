package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/askpapers/askpapers/models"
)

type stubGenerator struct {
	result models.GenerationResult
	err    error

	lastQuery string
	lastDocs  []models.RetrievedDocument
}

func (s *stubGenerator) Generate(ctx context.Context, query string, docs []models.RetrievedDocument) (models.GenerationResult, error) {
	s.lastQuery, s.lastDocs = query, docs
	return s.result, s.err
}

func TestGenerateSuccess(t *testing.T) {
	ret := &stubRetriever{docs: []models.RetrievedDocument{{ID: 1, Chunk: "A", SimilarityScore: 0.9}}}
	gen := &stubGenerator{result: models.GenerationResult{Response: "an answer", TokensPerSecond: 42}}
	h := &GenerationHandler{Retriever: ret, Generator: gen, DefaultTopK: 5}

	ctx, rec := retrieveContext(t, "/api/generate?query=perovskite&top_k=3")
	if err := h.generate(ctx); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ret.lastK != 3 {
		t.Fatalf("expected top_k 3 passed to retriever, got %d", ret.lastK)
	}
	if gen.lastQuery != "perovskite" || len(gen.lastDocs) != 1 {
		t.Fatalf("generator got query=%q docs=%d", gen.lastQuery, len(gen.lastDocs))
	}
	var result models.GenerationResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if result.Response != "an answer" {
		t.Fatalf("unexpected response: %q", result.Response)
	}
}

func TestGenerateMissingQuery(t *testing.T) {
	h := &GenerationHandler{Retriever: &stubRetriever{}, Generator: &stubGenerator{}, DefaultTopK: 5}
	ctx, _ := retrieveContext(t, "/api/generate")
	err := h.generate(ctx)
	assertHTTPStatus(t, err, http.StatusBadRequest)
}

func TestGenerateNoDocumentsIs404(t *testing.T) {
	h := &GenerationHandler{Retriever: &stubRetriever{}, Generator: &stubGenerator{}, DefaultTopK: 5}
	ctx, _ := retrieveContext(t, "/api/generate?query=nothing")
	err := h.generate(ctx)
	assertHTTPStatus(t, err, http.StatusNotFound)
}

func TestGenerateLLMFailureIs500(t *testing.T) {
	ret := &stubRetriever{docs: []models.RetrievedDocument{{ID: 1, Chunk: "A"}}}
	gen := &stubGenerator{err: errors.New("upstream down")}
	h := &GenerationHandler{Retriever: ret, Generator: gen, DefaultTopK: 5}
	ctx, _ := retrieveContext(t, "/api/generate?query=x")
	err := h.generate(ctx)
	assertHTTPStatus(t, err, http.StatusInternalServerError)
}
