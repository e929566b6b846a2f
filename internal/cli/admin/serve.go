package admin

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jerry-assistant/ragcore/internal/api/handlers"
	"github.com/jerry-assistant/ragcore/internal/cache"
	"github.com/jerry-assistant/ragcore/internal/config"
	"github.com/jerry-assistant/ragcore/internal/database"
	"github.com/jerry-assistant/ragcore/internal/embedding"
	"github.com/jerry-assistant/ragcore/internal/jobs"
	"github.com/jerry-assistant/ragcore/internal/repository"
	"github.com/jerry-assistant/ragcore/internal/retriever"
	"github.com/jerry-assistant/ragcore/internal/server"
	"github.com/jerry-assistant/ragcore/internal/telemetry"
	openai "github.com/sashabaranov/go-openai"
	"github.com/spf13/cobra"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the retrieval API server on the specified port",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := newLogger(cfg.Debug)
	slog.SetDefault(logger)

	if cfg.SentryDSN != "" {
		environment := os.Getenv("ENVIRONMENT")
		if environment == "" {
			environment = "development"
		}

		// Default to 10% sampling in production, 100% in development
		sampleRate := 0.1
		if environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              cfg.SentryDSN,
			Environment:      environment,
			TracesSampleRate: sampleRate,
		})
		if err != nil {
			logger.Warn("telemetry init failed, continuing without tracing", "error", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()
	logger.Info("connected to database")

	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL, logger); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	encoder := newEncoder(cfg, logger)
	chunkIndex := repository.NewChunkIndex(pool)

	var scorer retriever.Scorer = retriever.SemanticScorer{}
	if cfg.HybridScoring {
		scorer = retriever.DefaultHybridScorer()
	}

	rtr := retriever.NewWithConfig(encoder, chunkIndex, scorer, retriever.Config{
		TopK:                cfg.RetrieverTopK,
		SimilarityThreshold: cfg.RetrieverThreshold,
		MaxContextLength:    cfg.MaxContextLength,
	}, logger)

	store, err := cache.NewSQLiteStore(cfg.CachePath, logger)
	if err != nil {
		return fmt.Errorf("failed to open cache store: %w", err)
	}
	defer store.Close()

	semanticCache := cache.NewWithConfig(store, encoder, cache.Config{
		SimilarityThreshold: cfg.CacheThreshold,
		DefaultTTL:          cfg.CacheTTL,
		MaxSize:             cfg.CacheMaxSize,
	}, logger)

	maintenance := jobs.NewCacheMaintenance(semanticCache, logger)
	worker := jobs.NewWorker(maintenance, cfg.MaintenanceInterval, logger)
	go worker.Start(ctx)
	logger.Info("cache maintenance worker started", "interval", cfg.MaintenanceInterval)

	router := server.NewRouter(server.RouterConfig{
		APIKey:           cfg.APIKey,
		Logger:           logger,
		RetrievalHandler: handlers.NewRetrievalHandler(rtr),
		CacheHandler:     handlers.NewCacheHandler(semanticCache),
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info("starting server", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	worker.Stop()

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server exited")
	return nil
}

func newLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}

// newEncoder picks the embedding provider: OpenAI when configured,
// otherwise the deterministic hash provider.
func newEncoder(cfg *config.Config, logger *slog.Logger) embedding.Provider {
	if cfg.HasOpenAI() {
		logger.Info("using OpenAI embedding provider", "model", cfg.EmbeddingModel)
		return embedding.NewOpenAIProviderWithConfig(embedding.OpenAIConfig{
			APIKey:     cfg.OpenAIAPIKey,
			Model:      openai.EmbeddingModel(cfg.EmbeddingModel),
			Dimensions: cfg.EmbeddingDim,
		})
	}
	logger.Warn("no OpenAI API key configured, using hash embedding provider")
	return embedding.NewHashProvider(cfg.EmbeddingDim)
}

func runMigrations(databaseURL string, logger *slog.Logger) error {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if err == migrate.ErrNilVersion {
		logger.Info("migrations: database is up to date, no migrations applied")
	} else if dirty {
		return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	} else {
		logger.Info("migrations applied", "version", version)
	}

	return nil
}
