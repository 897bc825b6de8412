package provider

import (
	"context"
	"errors"
	"time"

	"github.com/askpapers/askpapers/models"
	openai_provider "github.com/askpapers/askpapers/provider/openai"
)

// Client represents different LLM providers
type Client string

const (
	OpenAI    Client = "openai"
	Anthropic Client = "anthropic"
)

// Provider is the interface that all LLM implementations must satisfy
type Provider interface {
	ChatCompletion(ctx context.Context, prompt string) (string, models.Usage, error)
	CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error)
}

// Options configures a provider client. Dimensions, when > 0, requests
// embeddings truncated to that length (the corpus schema fixes it).
type Options struct {
	APIKey          string
	CompletionModel string
	EmbeddingModel  string
	Dimensions      int
	Temperature     float64
	TopP            float64
	MaxTokens       int
	Timeout         time.Duration
}

// NewProvider creates a new LLM client based on the provided configuration
func NewProvider(client Client, opts Options) (Provider, error) {
	switch client {
	case OpenAI:
		if opts.APIKey == "" {
			return nil, errors.New("openai api key not set")
		}
		if opts.Timeout <= 0 {
			opts.Timeout = 30 * time.Second
		}
		return openai_provider.NewOpenAIClient(openai_provider.Config{
			APIKey:          opts.APIKey,
			CompletionModel: opts.CompletionModel,
			EmbeddingModel:  opts.EmbeddingModel,
			Dimensions:      opts.Dimensions,
			Temperature:     opts.Temperature,
			TopP:            opts.TopP,
			MaxTokens:       opts.MaxTokens,
			Timeout:         opts.Timeout,
		}), nil
	case Anthropic:
		return nil, errors.New("anthropic client not implemented yet")
	default:
		return nil, errors.New("unsupported LLM provider")
	}
}
