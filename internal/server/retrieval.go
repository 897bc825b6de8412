package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/askpapers/askpapers/internal/retriever"
	"github.com/askpapers/askpapers/models"
)

// DocumentRetriever is what the handlers need from the core.
type DocumentRetriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]models.RetrievedDocument, error)
	RetrieveExpanded(ctx context.Context, query string, k int) ([]models.RetrievedDocument, error)
}

// RetrievalHandler serves semantic search over the paper corpus.
type RetrievalHandler struct {
	Retriever   DocumentRetriever
	DefaultTopK int
}

func (h *RetrievalHandler) Register(g *echo.Group) {
	g.GET("/retrieve", h.retrieve)
}

// retrieve returns the top_k chunks most similar to the query. An empty
// corpus match is a 404, matching the consumer contract; invalid parameters
// are the caller's fault (400); store failures surface as 500.
func (h *RetrievalHandler) retrieve(c echo.Context) error {
	query := c.QueryParam("query")
	if query == "" {
		retrievalRequests.WithLabelValues("invalid").Inc()
		return echo.NewHTTPError(http.StatusBadRequest, "query is required")
	}
	topK, err := h.topK(c)
	if err != nil {
		retrievalRequests.WithLabelValues("invalid").Inc()
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	start := time.Now()
	var docs []models.RetrievedDocument
	if c.QueryParam("expand") == "true" {
		docs, err = h.Retriever.RetrieveExpanded(c.Request().Context(), query, topK)
	} else {
		docs, err = h.Retriever.Retrieve(c.Request().Context(), query, topK)
	}
	retrievalDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		if errors.Is(err, retriever.ErrInvalidQuery) {
			retrievalRequests.WithLabelValues("invalid").Inc()
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		retrievalRequests.WithLabelValues("error").Inc()
		return echo.NewHTTPError(http.StatusInternalServerError, "error retrieving chunks: "+err.Error())
	}
	if len(docs) == 0 {
		retrievalRequests.WithLabelValues("empty").Inc()
		return echo.NewHTTPError(http.StatusNotFound, "no chunks found")
	}
	retrievalRequests.WithLabelValues("ok").Inc()
	return c.JSON(http.StatusOK, docs)
}

func (h *RetrievalHandler) topK(c echo.Context) (int, error) {
	raw := c.QueryParam("top_k")
	if raw == "" {
		return h.DefaultTopK, nil
	}
	topK, err := strconv.Atoi(raw)
	if err != nil || topK <= 0 {
		return 0, errors.New("top_k must be a positive integer")
	}
	return topK, nil
}
