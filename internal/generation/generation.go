package generation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/askpapers/askpapers/models"
	"github.com/askpapers/askpapers/provider"
)

// ErrNoContext is returned when there are no chunks to ground the answer on.
var ErrNoContext = errors.New("generation: no context chunks")

const answerPrompt = `You are a helpful AI language assistant, please use the following context to answer the query. Answer in English.
Context: %s
Query: %s
Answer:`

// Service renders retrieved chunks into a single templated prompt and sends
// it through the LLM provider. One round trip, no retries or batching.
type Service struct {
	provider provider.Provider
	logger   *log.Logger
}

func New(p provider.Provider, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(log.Writer(), "[GEN] ", log.LstdFlags)
	}
	return &Service{provider: p, logger: logger}
}

// Generate answers the query grounded on the supplied chunks. Tokens per
// second is computed from provider usage and wall-clock time; zero when the
// provider reports no usage.
func (s *Service) Generate(ctx context.Context, query string, docs []models.RetrievedDocument) (models.GenerationResult, error) {
	if len(docs) == 0 {
		return models.GenerationResult{}, ErrNoContext
	}
	chunks := make([]string, 0, len(docs))
	for _, d := range docs {
		chunks = append(chunks, d.Chunk)
	}
	prompt := fmt.Sprintf(answerPrompt, strings.Join(chunks, "\n"), query)

	start := time.Now()
	answer, usage, err := s.provider.ChatCompletion(ctx, prompt)
	if err != nil {
		return models.GenerationResult{}, fmt.Errorf("generation: %w", err)
	}
	elapsed := time.Since(start)

	result := models.GenerationResult{Response: answer}
	if usage.CompletionTokens > 0 && elapsed > 0 {
		result.TokensPerSecond = float64(usage.CompletionTokens) / elapsed.Seconds()
	}
	s.logger.Printf("answered query %q with %d context chunks (%d completion tokens)",
		query, len(docs), usage.CompletionTokens)
	return result, nil
}
