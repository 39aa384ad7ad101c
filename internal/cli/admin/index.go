package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/cloo-solutions/aqacs/internal/config"
	"github.com/cloo-solutions/aqacs/internal/domain"
	"github.com/cloo-solutions/aqacs/internal/service"
	"github.com/cloo-solutions/aqacs/internal/tariff"
)

// IndexCmd returns the index command
func IndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Embed a snapshot into its vector collection",
		Long: `Read every chapter CSV of a snapshot, embed each row and upsert it into
the snapshot's collection. Point ids are derived from snapshot, chapter and
row, so re-running replaces points instead of duplicating them.

With --manifest, index a regulation manifest (one JSON document per line)
into us_ecfr_<snapshot> instead; --snapshot then names the manifest label.`,
		RunE: runIndex,
	}

	cmd.Flags().StringP("snapshot", "s", "", "Snapshot id (default: active snapshot)")
	cmd.Flags().Int("batch", service.DefaultIndexBatchSize, "Points per upsert")
	cmd.Flags().Int("embed-batch", service.DefaultEmbedBatchSize, "Texts per embedding call")
	cmd.Flags().Float64("rate", float64(service.DefaultEmbedRate), "Embedding calls per second")
	cmd.Flags().Bool("recreate", false, "Drop the collection before indexing")
	cmd.Flags().String("manifest", "", "Index this manifest.jsonl file instead of the snapshot CSVs")
	cmd.Flags().Bool("activate", false, "Make the snapshot active after a successful run")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations (pgvector backend)")
	cmd.Flags().StringP("output", "", "text", "Output format (text or json)")

	return cmd
}

func runIndex(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	resolver := newResolver(cfg)
	snapshotFlag, _ := cmd.Flags().GetString("snapshot")
	snapshotID := domain.SnapshotID(snapshotFlag)
	manifestPath, _ := cmd.Flags().GetString("manifest")
	activate, _ := cmd.Flags().GetBool("activate")
	if manifestPath != "" {
		if snapshotID == "" {
			return fmt.Errorf("--manifest needs --snapshot to name the manifest label")
		}
		if activate {
			return fmt.Errorf("--activate applies to tariff snapshots, not manifests")
		}
	}
	if snapshotID == "" {
		snapshotID = resolver.ActiveID()
	}
	if snapshotID == domain.PlaceholderSnapshotID {
		return fmt.Errorf("no snapshot to index: pass --snapshot or set SNAPSHOT_ID")
	}

	var source tariff.Source
	if manifestPath == "" {
		source, err = openSource(ctx, cfg)
		if err != nil {
			return err
		}
	}

	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	index, closeIndex, err := openVectorIndex(ctx, cfg, !noMigrate)
	if err != nil {
		return err
	}
	defer closeIndex()

	batch, _ := cmd.Flags().GetInt("batch")
	embedBatch, _ := cmd.Flags().GetInt("embed-batch")
	perSecond, _ := cmd.Flags().GetFloat64("rate")
	recreate, _ := cmd.Flags().GetBool("recreate")

	indexer := service.NewIndexer(source, newEmbedder(cfg), index, service.IndexerConfig{
		CollectionPrefix: cfg.CollectionPrefix,
		BatchSize:        batch,
		EmbedBatchSize:   embedBatch,
		EmbedRate:        rate.Limit(perSecond),
		Recreate:         recreate,
	})

	var stats *service.IndexStats
	if manifestPath != "" {
		stats, err = indexManifest(ctx, indexer, snapshotID, manifestPath)
	} else {
		stats, err = indexer.IndexSnapshot(ctx, snapshotID)
	}
	if err != nil {
		return fmt.Errorf("failed to index snapshot %s: %w", snapshotID, err)
	}

	if activate {
		if err := resolver.SetActive(snapshotID); err != nil {
			return fmt.Errorf("indexed, but failed to set active snapshot: %w", err)
		}
	}

	outputFormat, _ := cmd.Flags().GetString("output")
	if outputFormat == "json" {
		data := map[string]interface{}{
			"snapshot_id": stats.SnapshotID,
			"collection":  stats.Collection,
			"files":       stats.Files,
			"points":      stats.Points,
			"active":      activate,
		}
		jsonBytes, _ := json.MarshalIndent(data, "", "  ")
		fmt.Fprintln(cmd.OutOrStdout(), string(jsonBytes))
		return nil
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d points from %d files into %s\n", stats.Points, stats.Files, stats.Collection)
	if activate {
		fmt.Fprintf(cmd.OutOrStdout(), "Active snapshot: %s\n", snapshotID)
	}
	return nil
}

func indexManifest(ctx context.Context, indexer *service.Indexer, label domain.SnapshotID, path string) (*service.IndexStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest: %w", err)
	}
	defer f.Close()
	return indexer.IndexManifest(ctx, label, f)
}
