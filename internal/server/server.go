package server

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	appconfig "github.com/askpapers/askpapers/config"
	"github.com/askpapers/askpapers/internal/embedder"
	"github.com/askpapers/askpapers/internal/generation"
	"github.com/askpapers/askpapers/internal/retriever"
	"github.com/askpapers/askpapers/internal/store"
	"github.com/askpapers/askpapers/provider"
)

// Run wires the store, embedder, retriever and generation service and serves
// the HTTP API. The embedding provider is constructed once here; a failure is
// fatal before any traffic is accepted.
func Run(cfg *appconfig.Config) error {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	// Unified HTTP error handler with structured JSON and logging
	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, HTTPError{Error: msg})
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Content-Type"},
	}))

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	ctx := context.Background()
	dsn, err := cfg.Storage.Postgres.DSN()
	if err != nil {
		return err
	}
	st, err := store.NewWithDSN(ctx, dsn)
	if err != nil {
		return fmt.Errorf("postgres connection failed: %w", err)
	}

	llm, err := provider.NewProvider(provider.OpenAI, provider.Options{
		APIKey:          cfg.Providers.OpenAI.APIKey,
		CompletionModel: cfg.Providers.OpenAI.CompletionModel,
		EmbeddingModel:  cfg.Providers.OpenAI.EmbeddingModel,
		Dimensions:      cfg.Providers.OpenAI.EmbeddingDimensions,
		Temperature:     cfg.Providers.OpenAI.Temperature,
		TopP:            cfg.Providers.OpenAI.TopP,
		MaxTokens:       cfg.Providers.OpenAI.MaxTokens,
		Timeout:         cfg.Providers.OpenAI.Timeout,
	})
	if err != nil {
		return fmt.Errorf("provider init failed: %w", err)
	}
	emb, err := embedder.New(llm, cfg.Providers.OpenAI.EmbeddingDimensions)
	if err != nil {
		return fmt.Errorf("embedder init failed: %w", err)
	}

	ret := retriever.New(emb, st, nil)
	gen := generation.New(llm, nil)

	api := e.Group("/api")
	rh := &RetrievalHandler{Retriever: ret, DefaultTopK: cfg.Retrieval.TopK}
	rh.Register(api)
	gh := &GenerationHandler{Retriever: ret, Generator: gen, DefaultTopK: cfg.Retrieval.TopK}
	gh.Register(api)

	addr := cfg.General.Listen
	if addr == "" {
		addr = ":8080"
	}
	log.Printf("listening on %s", addr)
	return e.Start(addr)
}
