package embedder

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/askpapers/askpapers/provider"
)

var (
	// ErrEmptyInput is returned when the text to embed is empty or blank.
	// Blank queries carry no semantic content, so they are rejected rather
	// than embedded.
	ErrEmptyInput = errors.New("embedder: empty input")

	// ErrModelUnavailable indicates the embedding backend could not be
	// constructed. Fatal at startup; never raised per request.
	ErrModelUnavailable = errors.New("embedder: model unavailable")
)

// DimensionMismatchError reports an embedding whose length differs from the
// configured dimensionality. Passing such a vector to the store would corrupt
// the similarity math, so it always fails the call.
type DimensionMismatchError struct {
	Want int
	Got  int
}

func (e DimensionMismatchError) Error() string {
	return fmt.Sprintf("embedder: expected %d dimensions, got %d", e.Want, e.Got)
}

// Embedder converts text into fixed-length vectors. Implementations are safe
// for concurrent use; inference holds no per-request mutable state.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
}

// ProviderEmbedder backs the Embedder interface with an LLM provider's
// embeddings endpoint.
type ProviderEmbedder struct {
	provider provider.Provider
	dims     int
}

// New constructs a ProviderEmbedder. The provider is created once at process
// start and shared read-only across requests.
func New(p provider.Provider, dims int) (*ProviderEmbedder, error) {
	if p == nil {
		return nil, ErrModelUnavailable
	}
	if dims <= 0 {
		return nil, fmt.Errorf("%w: dimensions must be positive", ErrModelUnavailable)
	}
	return &ProviderEmbedder{provider: p, dims: dims}, nil
}

// Dimensions returns the fixed output length of every embedding.
func (e *ProviderEmbedder) Dimensions() int { return e.dims }

// Embed maps text to a vector of exactly Dimensions() length.
func (e *ProviderEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds several texts in one provider round trip. Order of the
// output matches the input.
func (e *ProviderEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyInput
	}
	for _, t := range texts {
		if strings.TrimSpace(t) == "" {
			return nil, ErrEmptyInput
		}
	}
	vecs, err := e.provider.CreateEmbedding(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embedder: %w", err)
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("embedder: expected %d embeddings, got %d", len(texts), len(vecs))
	}
	for _, v := range vecs {
		if len(v) != e.dims {
			return nil, DimensionMismatchError{Want: e.dims, Got: len(v)}
		}
	}
	return vecs, nil
}
