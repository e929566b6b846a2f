package admin

import (
	"context"
	"fmt"

	"github.com/jerry-assistant/ragcore/internal/chunking"
	"github.com/jerry-assistant/ragcore/internal/config"
	"github.com/jerry-assistant/ragcore/internal/database"
	"github.com/jerry-assistant/ragcore/internal/ingest"
	"github.com/jerry-assistant/ragcore/internal/repository"
	"github.com/jerry-assistant/ragcore/internal/storage"
	"github.com/spf13/cobra"
)

// IngestCmd returns the ingest command
func IngestCmd() *cobra.Command {
	var (
		fromS3   bool
		s3Prefix string
	)

	cmd := &cobra.Command{
		Use:   "ingest [dir]",
		Short: "Ingest documents into the knowledge index",
		Long:  "Chunk, embed and index documents from a local directory or from S3",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			return runIngest(dir, fromS3, s3Prefix)
		},
	}

	cmd.Flags().BoolVar(&fromS3, "s3", false, "Ingest from the configured S3 bucket instead of a directory")
	cmd.Flags().StringVar(&s3Prefix, "s3-prefix", "", "Key prefix when ingesting from S3")

	return cmd
}

func runIngest(dir string, fromS3 bool, s3Prefix string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := newLogger(cfg.Debug)

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	encoder := newEncoder(cfg, logger)
	chunkIndex := repository.NewChunkIndex(pool)
	svc := ingest.New(chunking.New(chunking.DefaultConfig()), encoder, chunkIndex, logger)

	var source ingest.Source
	if fromS3 {
		if !cfg.HasS3() {
			return fmt.Errorf("S3 ingestion requires RAGCORE_S3_ENDPOINT, RAGCORE_S3_ACCESS_KEY_ID and RAGCORE_S3_SECRET_ACCESS_KEY")
		}
		client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		})
		if err != nil {
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		source = storage.NewS3Source(client, s3Prefix)
	} else {
		source = ingest.NewFSSource(dir)
	}

	results, err := svc.IngestSource(ctx, source)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	totalChunks := 0
	for _, result := range results {
		totalChunks += result.ChunksStored
		fmt.Printf("%s: %d chunks", result.DocumentID, result.ChunksStored)
		if result.Replaced > 0 {
			fmt.Printf(" (replaced %d)", result.Replaced)
		}
		fmt.Println()
	}
	fmt.Printf("ingested %d documents, %d chunks\n", len(results), totalChunks)

	return nil
}
