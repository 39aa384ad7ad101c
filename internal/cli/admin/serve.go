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

	"github.com/cloo-solutions/aqacs/internal/api/handlers"
	"github.com/cloo-solutions/aqacs/internal/api/middleware"
	"github.com/cloo-solutions/aqacs/internal/config"
	"github.com/cloo-solutions/aqacs/internal/server"
	"github.com/cloo-solutions/aqacs/internal/service"
	"github.com/cloo-solutions/aqacs/internal/tariff"
	"github.com/cloo-solutions/aqacs/internal/telemetry"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the aqacs API server on the specified port",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup (pgvector backend)")
	cmd.Flags().Bool("no-warm", false, "Build the embedding and QA clients on first request instead of at startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.SentryDSN != "" {
		// Default to 10% sampling outside dev
		sampleRate := 0.1
		if cfg.Environment == "dev" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              cfg.SentryDSN,
			Environment:      cfg.Environment,
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

	resolver := newResolver(cfg)
	snapshotID := resolver.ActiveID()
	log.Printf("active snapshot: %s", snapshotID)

	source, err := openSource(ctx, cfg)
	if err != nil {
		return err
	}
	store, err := tariff.Load(ctx, source, snapshotID)
	if err != nil {
		return fmt.Errorf("failed to load tariff snapshot: %w", err)
	}
	log.Printf("loaded %d tariff records for %s", store.Len(), snapshotID)

	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	index, closeIndex, err := openVectorIndex(ctx, cfg, !noMigrate)
	if err != nil {
		return err
	}
	defer closeIndex()

	embedder := newEmbedder(cfg)
	qa := newQACapability(cfg)

	noWarm, _ := cmd.Flags().GetBool("no-warm")
	if !noWarm {
		warmCapabilities(ctx, embedder, qa)
	}

	extractor, err := service.NewExtractor(qa, service.ExtractorConfig{
		MaxContexts:     cfg.QAMaxContexts,
		MinConfidence:   cfg.QAMinConfidence,
		ExcerptMaxChars: cfg.ExcerptMaxChars,
		Workers:         cfg.QAWorkers,
	})
	if err != nil {
		return fmt.Errorf("failed to create answer extractor: %w", err)
	}
	defer extractor.Release()

	retriever := service.NewRetriever(resolver, embedder, index, cfg.CollectionPrefix)
	contexts := service.NewContextBuilder(service.ContextConfig{
		MaxChars:  cfg.ContextMaxChars,
		MaxFields: cfg.ContextMaxFields,
	})
	qaSvc := service.NewQAService(retriever, contexts, extractor, cfg.RequestTimeout)
	tariffSvc := service.NewTariffService(store, cfg.Disclaimer)

	routerCfg := server.RouterConfig{
		Snapshots:       resolver,
		HealthHandler:   handlers.NewHealthHandler(cfg.Environment),
		TariffHandler:   handlers.NewTariffHandler(tariffSvc),
		SemanticHandler: handlers.NewSemanticHandler(retriever),
		QAHandler:       handlers.NewQAHandler(qaSvc),
	}
	if cfg.AuthEnabled() {
		routerCfg.AuthValidator = authValidator(cfg)
		log.Println("API key auth enabled")
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

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

type warmer interface {
	Name() string
	Warm(ctx context.Context) error
}

// warmCapabilities builds the model clients before the first request. A
// failure is logged and reported; the capability is retried on first use.
func warmCapabilities(ctx context.Context, caps ...warmer) {
	for _, c := range caps {
		if err := c.Warm(ctx); err != nil {
			log.Printf("warm-up of %s failed (will retry on first use): %v", c.Name(), err)
			telemetry.CaptureError(ctx, fmt.Errorf("warm %s: %w", c.Name(), err))
			continue
		}
		log.Printf("%s ready", c.Name())
	}
}

func authValidator(cfg *config.Config) middleware.AuthValidator {
	return service.NewAuthService(cfg.APIKeys)
}

func runMigrations(databaseURL string) error {
	// Create a sql.DB connection for golang-migrate
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

	switch {
	case err == migrate.ErrNilVersion:
		log.Println("migrations: no migrations applied")
	case dirty:
		return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	default:
		log.Printf("migrations: database at version %d", version)
	}

	return nil
}
