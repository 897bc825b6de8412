package main

import (
	"context"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/askpapers/askpapers/config"
	"github.com/askpapers/askpapers/internal/embedder"
	"github.com/askpapers/askpapers/internal/ingest"
	"github.com/askpapers/askpapers/internal/store"
	"github.com/askpapers/askpapers/provider"
)

func ingestCMD() *cobra.Command {
	var cfgPath string
	var query string
	var maxResults int
	var noCheckpoint bool

	var cmd = &cobra.Command{
		Use:   "ingest",
		Short: "Crawl arXiv and ingest paper chunks into the corpus",
		RunE: func(cmd *cobra.Command, args []string) error {
			if query == "" {
				return fmt.Errorf("--query is required (e.g. ti:perovskite)")
			}
			cfg := config.LoadConfig(cfgPath)
			ctx := context.Background()

			dsn, err := cfg.Storage.Postgres.DSN()
			if err != nil {
				return err
			}
			st, err := store.NewWithDSN(ctx, dsn)
			if err != nil {
				return fmt.Errorf("postgres connection failed: %w", err)
			}
			defer st.Close()

			llm, err := provider.NewProvider(provider.OpenAI, provider.Options{
				APIKey:         cfg.Providers.OpenAI.APIKey,
				EmbeddingModel: cfg.Providers.OpenAI.EmbeddingModel,
				Dimensions:     cfg.Providers.OpenAI.EmbeddingDimensions,
				Timeout:        cfg.Providers.OpenAI.Timeout,
			})
			if err != nil {
				return err
			}
			emb, err := embedder.New(llm, cfg.Providers.OpenAI.EmbeddingDimensions)
			if err != nil {
				return err
			}

			var checkpoints *ingest.Checkpoints
			if addr := cfg.Storage.Redis.Addr(); addr != "" && !noCheckpoint {
				rdb := redis.NewClient(&redis.Options{
					Addr:     addr,
					Password: cfg.Storage.Redis.Password,
					DB:       cfg.Storage.Redis.DB,
				})
				if err := rdb.Ping(ctx).Err(); err != nil {
					return fmt.Errorf("redis connection failed (%s): %w", addr, err)
				}
				checkpoints = ingest.NewCheckpoints(rdb, cfg.Storage.Redis.TTL)
			}

			pipeline := &ingest.Pipeline{
				Arxiv:        ingest.NewArxivClient(cfg.Ingestion.ArxivURL, cfg.Providers.OpenAI.Timeout),
				Embedder:     emb,
				Store:        st,
				Checkpoints:  checkpoints,
				PageSize:     cfg.Ingestion.PageSize,
				PageDelay:    cfg.Ingestion.PageDelay,
				ChunkSize:    cfg.Ingestion.ChunkSize,
				ChunkOverlap: cfg.Ingestion.ChunkOverlap,
				Progress:     true,
			}
			stats, err := pipeline.Run(ctx, query, maxResults)
			if err != nil {
				return err
			}
			log.Printf("run %s: %d papers, %d chunks in %s", stats.RunID, stats.Papers, stats.Chunks, stats.Elapsed)
			return nil
		},
	}
	cmd.Flags().StringVar(&query, "query", "", "arXiv search query (e.g. ti:perovskite)")
	cmd.Flags().IntVar(&maxResults, "max-results", 20, "maximum papers to fetch")
	cmd.Flags().BoolVar(&noCheckpoint, "no-checkpoint", false, "crawl from offset 0 even when a checkpoint exists")
	cmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is .)")

	return cmd
}
