package ingest

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultArxivURL is the public arXiv Atom query endpoint.
const DefaultArxivURL = "http://export.arxiv.org/api/query"

// Paper is one arXiv entry worth keeping: title plus abstract.
type Paper struct {
	Title   string
	Summary string
}

// ArxivClient fetches paper metadata from the arXiv Atom API.
type ArxivClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewArxivClient builds a client for the given endpoint; empty baseURL falls
// back to the public API.
func NewArxivClient(baseURL string, timeout time.Duration) *ArxivClient {
	if baseURL == "" {
		baseURL = DefaultArxivURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ArxivClient{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

type atomFeed struct {
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	Title   string `xml:"title"`
	Summary string `xml:"summary"`
}

// FetchPapers runs one search request against the API, returning up to
// maxResults papers starting at the given offset.
func (c *ArxivClient) FetchPapers(ctx context.Context, query string, start, maxResults int) ([]Paper, error) {
	params := url.Values{}
	params.Set("search_query", query)
	params.Set("start", strconv.Itoa(start))
	params.Set("max_results", strconv.Itoa(maxResults))

	req, err := http.NewRequestWithContext(ctx, "GET", c.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("arxiv: create request: %w", err)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("arxiv: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arxiv: API returned status %d", resp.StatusCode)
	}

	var feed atomFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("arxiv: parse feed: %w", err)
	}
	papers := make([]Paper, 0, len(feed.Entries))
	for _, e := range feed.Entries {
		papers = append(papers, Paper{
			Title:   strings.TrimSpace(e.Title),
			Summary: strings.TrimSpace(e.Summary),
		})
	}
	return papers, nil
}
