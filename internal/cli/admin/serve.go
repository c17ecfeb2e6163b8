package admin

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"

	"github.com/factfin-ai/factfin/internal/aggregator"
	"github.com/factfin-ai/factfin/internal/api/handlers"
	"github.com/factfin-ai/factfin/internal/config"
	"github.com/factfin-ai/factfin/internal/database"
	"github.com/factfin-ai/factfin/internal/generator"
	"github.com/factfin-ai/factfin/internal/indexer"
	"github.com/factfin-ai/factfin/internal/jobs"
	"github.com/factfin-ai/factfin/internal/openai"
	"github.com/factfin-ai/factfin/internal/pipeline"
	"github.com/factfin-ai/factfin/internal/providers/exchange"
	"github.com/factfin-ai/factfin/internal/providers/marketdata"
	"github.com/factfin-ai/factfin/internal/providers/news"
	"github.com/factfin-ai/factfin/internal/providers/websearch"
	"github.com/factfin-ai/factfin/internal/repository"
	"github.com/factfin-ai/factfin/internal/resolver"
	"github.com/factfin-ai/factfin/internal/retriever"
	"github.com/factfin-ai/factfin/internal/server"
	"github.com/factfin-ai/factfin/internal/storage"
	"github.com/factfin-ai/factfin/internal/symbols"
	"github.com/factfin-ai/factfin/internal/telemetry"
	"github.com/factfin-ai/factfin/internal/verifier"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the claim verification API server on the specified port",
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

	// Initialize Sentry with tracing if SENTRY_DSN is set
	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
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
			DSN:              dsn,
			Environment:      environment,
			TracesSampleRate: sampleRate,
			Debug:            cfg.Debug,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

	pool, err := database.NewPoolFromURL(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()
	log.Println("connected to database")

	// Run migrations unless --no-migrate flag is set
	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	chunkRepo := repository.NewChunkRepository(pool)
	backfillRepo := repository.NewBackfillJobRepository(pool)

	var llm *openai.Client
	if cfg.HasOpenAI() {
		llm = openai.NewClient(cfg.OpenAIAPIKey)
	} else {
		// Retrieval degrades to lexical-only and generation calls will
		// surface as GENERATION_ERROR until a key is configured.
		log.Println("warning: OPENAI_API_KEY not set; embeddings and generation are unavailable")
	}

	directory, err := symbols.NewDirectory()
	if err != nil {
		return fmt.Errorf("failed to load symbol directory: %w", err)
	}

	var extractor resolver.ExtractionClient
	if llm != nil {
		extractor = llm
	}
	entityResolver := resolver.NewResolverWithTimeout(directory, extractor, cfg.ResolverTimeout)

	var market aggregator.MarketDataClient
	if cfg.HasMarketData() {
		var opts []marketdata.ClientOption
		if cfg.MarketDataBaseURL != "" {
			opts = append(opts, marketdata.WithBaseURL(cfg.MarketDataBaseURL))
		}
		market = marketdata.NewClient(cfg.MarketDataAPIKey, opts...)
	}

	var newsProviders []aggregator.NewsProvider
	if cfg.GNewsAPIKey != "" {
		newsProviders = append(newsProviders, news.NewGNewsProvider(cfg.GNewsAPIKey, ""))
	}
	if cfg.NewsDataAPIKey != "" {
		newsProviders = append(newsProviders, news.NewNewsDataProvider(cfg.NewsDataAPIKey, ""))
	}
	if cfg.MarketauxAPIKey != "" {
		newsProviders = append(newsProviders, news.NewMarketauxProvider(cfg.MarketauxAPIKey, ""))
	}
	log.Printf("configured %d news provider(s)", len(newsProviders))

	var exchangeClient aggregator.ExchangeClient
	if cfg.ExchangeBaseURL != "" {
		exchangeClient = exchange.NewClient(cfg.ExchangeBaseURL)
	}

	var web aggregator.WebSearcher
	if cfg.HasWebSearch() {
		scraper := websearch.NewScraper(cfg.ScraperAPIKey, cfg.FetchTimeout)
		web = websearch.NewClient(cfg.SearchAPIKey, scraper,
			websearch.WithDeepFetchLimit(cfg.DeepFetchLimit))
	}

	agg := aggregator.New(market, newsProviders, exchangeClient, web, cfg.FetchTimeout)

	var archive pipeline.Archiver
	if cfg.HasS3() {
		evidenceArchive, err := storage.NewEvidenceArchive(ctx, storage.ArchiveConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		})
		if err != nil {
			return fmt.Errorf("failed to create evidence archive: %w", err)
		}
		if err := evidenceArchive.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("failed to ensure evidence bucket: %w", err)
		}
		log.Printf("evidence archive bucket '%s' ready", cfg.S3Bucket)
		archive = evidenceArchive
	}

	var embedder indexer.Embedder
	var retrieverEmbedder retriever.Embedder
	var backfillWorker *jobs.Worker
	if llm != nil {
		embedder = llm
		retrieverEmbedder = llm
		backfillProcessor := jobs.NewBackfillWorker(backfillRepo, chunkRepo, llm)
		backfillWorker = jobs.NewWorker(backfillProcessor, 10*time.Second)
		go backfillWorker.Start(ctx)
		log.Println("embedding backfill worker started")
	}

	ix := indexer.New(chunkRepo, backfillRepo, ingestTx{repository.NewTxRunner(pool)}, embedder)
	ret := retriever.New(chunkRepo, retrieverEmbedder, cfg.SemanticWeight, cfg.LexicalWeight)

	var gen *generator.Generator
	var ver *verifier.Verifier
	if llm != nil {
		gen = generator.New(llm)
		ver = verifier.New(llm)
	} else {
		gen = generator.New(&unconfiguredLLM{})
		ver = verifier.New(&unconfiguredLLM{})
	}

	p := pipeline.New(entityResolver, agg, ix, ret, gen, ver, archive, cfg.TopK)
	runPool := pipeline.NewPool(p, cfg.PipelineWorkers)
	runPool.Start()

	routerCfg := server.RouterConfig{
		VerifyHandler: handlers.NewVerifyHandler(runPool),
		SearchHandler: handlers.NewSearchHandler(ret),
		StatsHandler:  handlers.NewStatsHandler(chunkRepo),
	}

	router := server.NewRouter(routerCfg)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	if backfillWorker != nil {
		backfillWorker.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	runPool.Shutdown()

	log.Println("server exited")
	return nil
}

// ingestTx adapts the repository transaction runner to the indexer's store
// interfaces so a chunk upsert and its backfill enqueue commit together.
type ingestTx struct {
	runner *repository.TxRunner
}

func (t ingestTx) WithTx(ctx context.Context, fn func(indexer.ChunkStore, indexer.BackfillStore) error) error {
	return t.runner.WithTx(ctx, func(repos repository.TxRepositories) error {
		return fn(repos.Chunks(), repos.BackfillJobs())
	})
}

// unconfiguredLLM stands in for the completion client when no API key is
// set, so generation fails with a clear error instead of a panic.
type unconfiguredLLM struct{}

func (*unconfiguredLLM) CompleteJSON(ctx context.Context, system, user string) (string, error) {
	return "", fmt.Errorf("llm not configured: OPENAI_API_KEY required")
}

func runMigrations(databaseURL string) error {
	// Create a sql.DB connection for golang-migrate
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	// Create postgres driver instance
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	// Create migrate instance with file source
	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	// Run migrations
	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	// Get migration version and status
	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if err == migrate.ErrNilVersion {
		log.Println("migrations: database is up to date (no migrations applied)")
	} else if dirty {
		return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	} else if err == migrate.ErrNoChange {
		log.Printf("migrations: database is up to date (version %d)", version)
	} else {
		log.Printf("migrations: applied successfully (version %d)", version)
	}

	return nil
}
