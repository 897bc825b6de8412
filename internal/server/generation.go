package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/askpapers/askpapers/internal/retriever"
	"github.com/askpapers/askpapers/models"
)

// AnswerGenerator is the generation boundary the handler consumes.
type AnswerGenerator interface {
	Generate(ctx context.Context, query string, docs []models.RetrievedDocument) (models.GenerationResult, error)
}

// GenerationHandler composes retrieval and the LLM wrapper into one answer
// endpoint. It is a pass-through: retrieval errors and generation errors map
// straight to status codes, no fabricated fallback answers.
type GenerationHandler struct {
	Retriever   DocumentRetriever
	Generator   AnswerGenerator
	DefaultTopK int
}

func (h *GenerationHandler) Register(g *echo.Group) {
	g.GET("/generate", h.generate)
}

func (h *GenerationHandler) generate(c echo.Context) error {
	query := c.QueryParam("query")
	if query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query is required")
	}
	rh := RetrievalHandler{DefaultTopK: h.DefaultTopK}
	topK, err := rh.topK(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()
	docs, err := h.Retriever.Retrieve(ctx, query, topK)
	if err != nil {
		if errors.Is(err, retriever.ErrInvalidQuery) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "error retrieving chunks: "+err.Error())
	}
	if len(docs) == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "no documents found")
	}

	result, err := h.Generator.Generate(ctx, query, docs)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "error generating response: "+err.Error())
	}
	return c.JSON(http.StatusOK, result)
}
