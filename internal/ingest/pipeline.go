package ingest

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"

	"github.com/askpapers/askpapers/internal/embedder"
	"github.com/askpapers/askpapers/internal/store"
)

// PaperWriter is the store boundary used by the pipeline.
type PaperWriter interface {
	InsertPapers(ctx context.Context, records []store.PaperRecord) error
}

// Stats summarises one pipeline run.
type Stats struct {
	RunID   string
	Papers  int
	Chunks  int
	Elapsed time.Duration
}

// Pipeline crawls arXiv, chunks abstracts, embeds them in batches and writes
// the records to the passage store. Checkpoints is optional; when set, page
// offsets are persisted so Run resumes after interruption.
type Pipeline struct {
	Arxiv       *ArxivClient
	Embedder    embedder.Embedder
	Store       PaperWriter
	Checkpoints *Checkpoints
	Logger      *log.Logger

	PageSize     int
	PageDelay    time.Duration
	ChunkSize    int
	ChunkOverlap int
	Progress     bool
}

// Run crawls up to maxResults papers matching the query and ingests them.
func (p *Pipeline) Run(ctx context.Context, query string, maxResults int) (Stats, error) {
	logger := p.Logger
	if logger == nil {
		logger = log.New(log.Writer(), "[INGEST] ", log.LstdFlags)
	}
	pageSize := p.PageSize
	if pageSize <= 0 {
		pageSize = 5
	}

	stats := Stats{RunID: uuid.NewString()}
	startedAt := time.Now()

	offset := 0
	if p.Checkpoints != nil {
		var err error
		offset, err = p.Checkpoints.Offset(ctx, query)
		if err != nil {
			return stats, err
		}
		if offset > 0 {
			logger.Printf("run %s: resuming crawl of %q at offset %d", stats.RunID, query, offset)
		}
	}

	var bar *progressbar.ProgressBar
	if p.Progress {
		bar = progressbar.Default(int64(maxResults), "ingesting")
		_ = bar.Set(offset)
	}

	for offset < maxResults {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		pageLimit := pageSize
		if remaining := maxResults - offset; remaining < pageLimit {
			pageLimit = remaining
		}
		papers, err := p.Arxiv.FetchPapers(ctx, query, offset, pageLimit)
		if err != nil {
			return stats, fmt.Errorf("fetch page at %d: %w", offset, err)
		}
		if len(papers) == 0 {
			break
		}

		if err := p.ingestPage(ctx, papers, &stats); err != nil {
			return stats, err
		}

		offset += len(papers)
		if p.Checkpoints != nil {
			if err := p.Checkpoints.SetOffset(ctx, query, offset); err != nil {
				return stats, err
			}
		}
		if bar != nil {
			_ = bar.Set(offset)
		}
		if len(papers) < pageLimit {
			break
		}
		if offset < maxResults && p.PageDelay > 0 {
			select {
			case <-time.After(p.PageDelay):
			case <-ctx.Done():
				return stats, ctx.Err()
			}
		}
	}

	if p.Checkpoints != nil {
		if err := p.Checkpoints.Clear(ctx, query); err != nil {
			logger.Printf("run %s: clear checkpoint: %v", stats.RunID, err)
		}
	}
	stats.Elapsed = time.Since(startedAt)
	logger.Printf("run %s: ingested %d papers (%d chunks) in %s",
		stats.RunID, stats.Papers, stats.Chunks, stats.Elapsed.Round(time.Millisecond))
	return stats, nil
}

// ingestPage chunks one page of papers, embeds all chunks in a single batch
// and writes them in one transaction.
func (p *Pipeline) ingestPage(ctx context.Context, papers []Paper, stats *Stats) error {
	var (
		texts   []string
		records []store.PaperRecord
	)
	for _, paper := range papers {
		for _, chunk := range ChunkText(paper.Summary, p.ChunkSize, p.ChunkOverlap) {
			texts = append(texts, chunk)
			records = append(records, store.PaperRecord{
				Title:   paper.Title,
				Summary: paper.Summary,
				Chunk:   chunk,
			})
		}
	}
	if len(records) == 0 {
		return nil
	}
	vecs, err := p.Embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed page: %w", err)
	}
	for i := range records {
		records[i].Embedding = vecs[i]
	}
	if err := p.Store.InsertPapers(ctx, records); err != nil {
		return fmt.Errorf("store page: %w", err)
	}
	stats.Papers += len(papers)
	stats.Chunks += len(records)
	return nil
}
