package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
)

// Store wraps the Postgres connection pool holding the paper corpus.
type Store struct {
	DB *sql.DB
}

// PaperRecord is the persisted shape of one retrievable chunk.
type PaperRecord struct {
	ID        int64
	Title     string
	Summary   string
	Chunk     string
	Embedding []float32
}

// ChunkRow is a similarity search hit. Distance is the raw pgvector cosine
// distance; mapping it to a similarity score is the retriever's job.
type ChunkRow struct {
	ID       int64
	Title    string
	Summary  string
	Chunk    string
	Distance float64
}

// NewWithDSN constructs the Store using an explicit Postgres DSN
func NewWithDSN(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{DB: db}, nil
}

// Close releases the underlying pool.
func (s *Store) Close() error { return s.DB.Close() }

// SearchChunks returns the limit closest chunks to the supplied vector,
// ordered by ascending cosine distance with id as the deterministic tie-break.
func (s *Store) SearchChunks(ctx context.Context, vector []float32, limit int) ([]ChunkRow, error) {
	vecLiteral, err := encodeVectorLiteral(vector)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 5
	}
	rows, err := s.DB.QueryContext(ctx, `
SELECT id, title, summary, chunk, embedding <=> $1::vector AS distance
FROM papers
ORDER BY embedding <=> $1::vector, id
LIMIT $2
`, vecLiteral, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var results []ChunkRow
	for rows.Next() {
		var row ChunkRow
		if err := rows.Scan(&row.ID, &row.Title, &row.Summary, &row.Chunk, &row.Distance); err != nil {
			return nil, err
		}
		results = append(results, row)
	}
	return results, rows.Err()
}

// InsertPapers stores a batch of chunk records in one transaction. The
// vector column enforces dimensionality; a mismatched embedding fails the
// whole batch rather than persisting partial data.
func (s *Store) InsertPapers(ctx context.Context, records []PaperRecord) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO papers (title, summary, chunk, embedding)
VALUES ($1,$2,$3,$4::vector)
`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()
	for _, rec := range records {
		vecLiteral, encErr := encodeVectorLiteral(rec.Embedding)
		if encErr != nil {
			err = fmt.Errorf("paper %q: %w", rec.Title, encErr)
			return err
		}
		if _, err = stmt.ExecContext(ctx, rec.Title, rec.Summary, rec.Chunk, vecLiteral); err != nil {
			return fmt.Errorf("insert paper %q: %w", rec.Title, err)
		}
	}
	return tx.Commit()
}

// GetPaper loads a single stored chunk, embedding included.
func (s *Store) GetPaper(ctx context.Context, id int64) (PaperRecord, error) {
	var (
		rec        PaperRecord
		vecLiteral string
	)
	err := s.DB.QueryRowContext(ctx, `
SELECT id, title, summary, chunk, embedding::text
FROM papers
WHERE id = $1
`, id).Scan(&rec.ID, &rec.Title, &rec.Summary, &rec.Chunk, &vecLiteral)
	if err != nil {
		return PaperRecord{}, err
	}
	rec.Embedding, err = decodeVectorLiteral(vecLiteral)
	if err != nil {
		return PaperRecord{}, err
	}
	return rec, nil
}

// CountPapers reports how many chunks are stored.
func (s *Store) CountPapers(ctx context.Context) (int64, error) {
	var n int64
	err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM papers`).Scan(&n)
	return n, err
}

func encodeVectorLiteral(vec []float32) (string, error) {
	if len(vec) == 0 {
		return "", fmt.Errorf("vector must not be empty")
	}
	var builder strings.Builder
	builder.WriteByte('[')
	for i, f := range vec {
		if i > 0 {
			builder.WriteByte(',')
		}
		builder.WriteString(strconv.FormatFloat(float64(f), 'f', -1, 32))
	}
	builder.WriteByte(']')
	return builder.String(), nil
}

func decodeVectorLiteral(lit string) ([]float32, error) {
	lit = strings.TrimSpace(lit)
	if lit == "" {
		return nil, fmt.Errorf("empty vector literal")
	}
	lit = strings.TrimPrefix(lit, "[")
	lit = strings.TrimSuffix(lit, "]")
	parts := strings.Split(lit, ",")
	vec := make([]float32, 0, len(parts))
	for _, part := range parts {
		value := strings.TrimSpace(part)
		if value == "" {
			continue
		}
		f, err := strconv.ParseFloat(value, 32)
		if err != nil {
			return nil, fmt.Errorf("parse vector value %q: %w", value, err)
		}
		vec = append(vec, float32(f))
	}
	return vec, nil
}
