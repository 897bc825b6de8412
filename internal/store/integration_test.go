package store_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/askpapers/askpapers/internal/store"
)

// startPostgres launches a pgvector-enabled Postgres and returns a connected
// store with a 3-dimensional papers table.
func startPostgres(t *testing.T, ctx context.Context) *store.Store {
	t.Helper()

	pgC, err := tcPostgres.RunContainer(ctx,
		testcontainers.WithImage("pgvector/pgvector:pg16"),
		tcPostgres.WithDatabase("askpapers"),
		tcPostgres.WithUsername("askpapers"),
		tcPostgres.WithPassword("askpapers"),
		testcontainers.WithWaitStrategy(wait.ForListeningPort("5432/tcp")),
	)
	if err != nil {
		t.Fatalf("postgres container: %v", err)
	}
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })

	host, err := pgC.Host(ctx)
	if err != nil {
		t.Fatalf("postgres host: %v", err)
	}
	port, err := pgC.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("postgres port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://askpapers:askpapers@%s:%s/askpapers?sslmode=disable", host, port.Port())

	st, err := store.NewWithDSN(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	// 3-dimensional table keeps the fixtures readable; the production schema
	// in migrations/ uses vector(384)
	if _, err := st.DB.ExecContext(ctx, `
CREATE EXTENSION IF NOT EXISTS vector;
CREATE TABLE papers (
    id BIGSERIAL PRIMARY KEY,
    title TEXT NOT NULL,
    summary TEXT NOT NULL,
    chunk TEXT NOT NULL,
    embedding vector(3) NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	return st
}

func TestStoreSearchOrdering(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()
	st := startPostgres(t, ctx)

	records := []store.PaperRecord{
		{Title: "Paper A", Summary: "s", Chunk: "A", Embedding: []float32{1, 0, 0}},
		{Title: "Paper B", Summary: "s", Chunk: "B", Embedding: []float32{0, 1, 0}},
		{Title: "Paper C", Summary: "s", Chunk: "C", Embedding: []float32{0.7, 0.7, 0}},
	}
	if err := st.InsertPapers(ctx, records); err != nil {
		t.Fatalf("InsertPapers: %v", err)
	}
	n, err := st.CountPapers(ctx)
	if err != nil || n != 3 {
		t.Fatalf("CountPapers: n=%d err=%v", n, err)
	}

	rows, err := st.SearchChunks(ctx, []float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatalf("SearchChunks: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].Chunk != "A" || rows[1].Chunk != "C" {
		t.Fatalf("expected [A C], got [%s %s]", rows[0].Chunk, rows[1].Chunk)
	}
	if rows[0].Distance > rows[1].Distance {
		t.Fatalf("distances not ascending: %f > %f", rows[0].Distance, rows[1].Distance)
	}

	// k larger than the corpus returns everything
	rows, err = st.SearchChunks(ctx, []float32{1, 0, 0}, 10)
	if err != nil {
		t.Fatalf("SearchChunks: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows for k=10, got %d", len(rows))
	}

	rec, err := st.GetPaper(ctx, rows[0].ID)
	if err != nil {
		t.Fatalf("GetPaper: %v", err)
	}
	if len(rec.Embedding) != 3 {
		t.Fatalf("expected decoded embedding, got %v", rec.Embedding)
	}
}

func TestStoreRejectsWrongDimensionality(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()
	st := startPostgres(t, ctx)

	err := st.InsertPapers(ctx, []store.PaperRecord{
		{Title: "bad", Summary: "s", Chunk: "x", Embedding: []float32{1, 0}},
	})
	if err == nil {
		t.Fatal("expected dimension mismatch to fail the insert")
	}
	n, err := st.CountPapers(ctx)
	if err != nil {
		t.Fatalf("CountPapers: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected no partial writes, got %d rows", n)
	}
}

func TestStoreEmptyCorpus(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()
	st := startPostgres(t, ctx)

	rows, err := st.SearchChunks(ctx, []float32{1, 0, 0}, 5)
	if err != nil {
		t.Fatalf("SearchChunks: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected empty result, got %d", len(rows))
	}
}
