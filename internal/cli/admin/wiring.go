package admin

import (
	"context"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"
	goopenai "github.com/sashabaranov/go-openai"

	"github.com/cloo-solutions/aqacs/internal/capability"
	"github.com/cloo-solutions/aqacs/internal/config"
	"github.com/cloo-solutions/aqacs/internal/database"
	"github.com/cloo-solutions/aqacs/internal/domain"
	"github.com/cloo-solutions/aqacs/internal/inference"
	"github.com/cloo-solutions/aqacs/internal/openai"
	"github.com/cloo-solutions/aqacs/internal/qdrant"
	"github.com/cloo-solutions/aqacs/internal/repository"
	"github.com/cloo-solutions/aqacs/internal/service"
	"github.com/cloo-solutions/aqacs/internal/snapshot"
	"github.com/cloo-solutions/aqacs/internal/storage"
	"github.com/cloo-solutions/aqacs/internal/tariff"
)

// vectorBackend is what serve and index need from either vector store.
type vectorBackend interface {
	service.VectorIndex
	DeleteCollection(ctx context.Context, collection string) error
}

func newResolver(cfg *config.Config) *snapshot.Resolver {
	r := snapshot.NewResolver(cfg.ActiveVersionFile, domain.SnapshotID(cfg.SnapshotID))
	r.Debug = cfg.Debug
	return r
}

// openSource reads snapshots from the bucket when one is configured and from
// SNAPSHOT_ROOT otherwise.
func openSource(ctx context.Context, cfg *config.Config) (tariff.Source, error) {
	if !cfg.HasS3() {
		return tariff.NewDirSource(cfg.SnapshotRoot), nil
	}

	src, err := storage.NewS3Source(ctx, storage.S3ClientConfig{
		Endpoint:        cfg.S3Endpoint,
		Region:          cfg.S3Region,
		AccessKeyID:     cfg.S3AccessKey,
		SecretAccessKey: cfg.S3SecretKey,
		Bucket:          cfg.S3Bucket,
		Prefix:          cfg.S3Prefix,
		UsePathStyle:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 source: %w", err)
	}
	log.Printf("reading snapshots from bucket '%s'", cfg.S3Bucket)
	return src, nil
}

// openVectorIndex connects to the configured backend. The returned close
// function is never nil.
func openVectorIndex(ctx context.Context, cfg *config.Config, migrateDB bool) (vectorBackend, func(), error) {
	if cfg.VectorBackend != config.BackendPgvector {
		client := qdrant.NewClient(qdrant.Config{
			URL:     cfg.QdrantURL,
			APIKey:  cfg.QdrantAPIKey,
			Timeout: cfg.RequestTimeout,
		})
		return client, func() {}, nil
	}

	pool, err := openPool(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	if migrateDB {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	return repository.NewVectorRepository(pool), pool.Close, nil
}

func openPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Println("connected to database")
	return pool, nil
}

// newEmbedder defers building the embedding client until first use.
func newEmbedder(cfg *config.Config) *capability.Lazy[service.Embedder] {
	return capability.NewLazy("embedder", func(ctx context.Context) (service.Embedder, error) {
		if cfg.EmbeddingProvider == config.ProviderOpenAI {
			return openai.NewClientWithConfig(openAIConfig(cfg)), nil
		}
		client, err := inference.NewEmbedClient(inference.EmbedConfig{
			URL:     cfg.EmbeddingURL,
			Token:   cfg.InferenceToken,
			Timeout: cfg.RequestTimeout,
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	})
}

// newQACapability defers building the extractive QA client until first use.
func newQACapability(cfg *config.Config) *capability.Lazy[service.QACapability] {
	return capability.NewLazy("qa", func(ctx context.Context) (service.QACapability, error) {
		if cfg.QAProvider == config.ProviderOpenAI {
			return openai.NewExtractor(openAIConfig(cfg), cfg.QAModel), nil
		}
		client, err := inference.NewQAClient(inference.QAConfig{
			URL:     cfg.QAURL,
			Token:   cfg.InferenceToken,
			Timeout: cfg.RequestTimeout,
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	})
}

func openAIConfig(cfg *config.Config) openai.Config {
	return openai.Config{
		APIKey:              cfg.OpenAIAPIKey,
		EmbeddingModel:      goopenai.EmbeddingModel(cfg.EmbeddingModel),
		EmbeddingDimensions: cfg.EmbeddingDimensions,
	}
}
