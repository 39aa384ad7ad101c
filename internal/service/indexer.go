package service

import (
	"context"
	"fmt"
	"log"
	"path"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/cloo-solutions/aqacs/internal/domain"
	"github.com/cloo-solutions/aqacs/internal/tariff"
	"github.com/cloo-solutions/aqacs/internal/telemetry"
)

// Indexing defaults.
const (
	DefaultIndexBatchSize = 512
	DefaultEmbedBatchSize = 32
	DefaultEmbedRate      = rate.Limit(20)
	DefaultManifestPrefix = "us_ecfr"
	chapterFilePrefix     = "ch_"
)

// IndexerConfig tunes snapshot indexing.
type IndexerConfig struct {
	CollectionPrefix string
	ManifestPrefix   string     // collection prefix for regulation manifests
	BatchSize        int        // points per upsert
	EmbedBatchSize   int        // texts per embedding call
	EmbedRate        rate.Limit // embedding calls per second
	Recreate         bool       // drop the collection before indexing
}

// IndexStats summarizes one indexing run.
type IndexStats struct {
	SnapshotID domain.SnapshotID
	Collection string
	Files      int
	Points     int
}

type collectionDropper interface {
	DeleteCollection(ctx context.Context, collection string) error
}

// Indexer embeds every row of a snapshot's chapter CSVs into the snapshot's
// vector collection.
type Indexer struct {
	source   tariff.Source
	embedder EmbedderSource
	index    VectorIndex
	cfg      IndexerConfig
	limiter  *rate.Limiter
}

// NewIndexer creates an Indexer.
func NewIndexer(source tariff.Source, embedder EmbedderSource, index VectorIndex, cfg IndexerConfig) *Indexer {
	if cfg.CollectionPrefix == "" {
		cfg.CollectionPrefix = domain.DefaultCollectionPrefix
	}
	if cfg.ManifestPrefix == "" {
		cfg.ManifestPrefix = DefaultManifestPrefix
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultIndexBatchSize
	}
	if cfg.EmbedBatchSize <= 0 {
		cfg.EmbedBatchSize = DefaultEmbedBatchSize
	}
	if cfg.EmbedRate <= 0 {
		cfg.EmbedRate = DefaultEmbedRate
	}
	return &Indexer{
		source:   source,
		embedder: embedder,
		index:    index,
		cfg:      cfg,
		limiter:  rate.NewLimiter(cfg.EmbedRate, 1),
	}
}

// pendingPoint is a row waiting for its vector.
type pendingPoint struct {
	id      string
	text    string
	payload domain.Payload
}

// IndexSnapshot indexes every ch_NN.csv file of the snapshot in file-name
// order. Point ids derive from snapshot, chapter and row, so a rerun
// overwrites instead of duplicating.
func (ix *Indexer) IndexSnapshot(ctx context.Context, snapshotID domain.SnapshotID) (*IndexStats, error) {
	if err := domain.ValidateSnapshotID(snapshotID); err != nil {
		return nil, err
	}
	collection := snapshotID.Collection(ix.cfg.CollectionPrefix)

	ctx, span := telemetry.StartSpan(ctx, "indexer.index_snapshot", telemetry.SpanAttributes{
		SnapshotID: snapshotID.String(),
		Collection: collection,
		Operation:  "index",
	})
	defer span.End()

	embedder, err := ix.embedder.Get(ctx)
	if err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("failed to load embedding model: %w", err)
	}

	names, err := ix.source.List(ctx, snapshotID)
	if err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("failed to list snapshot %s: %w", snapshotID, err)
	}

	run, err := ix.startRun(ctx, embedder, snapshotID, collection)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	for _, name := range names {
		chapter, ok := chapterFromFileName(name)
		if !ok {
			continue
		}
		if err := run.indexFile(ctx, snapshotID, name, chapter); err != nil {
			span.SetError(err)
			return nil, err
		}
		run.stats.Files++
		telemetry.AddBreadcrumb(ctx, "indexer", fmt.Sprintf("read %s (chapter %s)", name, chapter))
	}
	if err := run.flush(ctx); err != nil {
		span.SetError(err)
		return nil, err
	}

	span.SetCount("files", run.stats.Files)
	span.SetCount("points", run.stats.Points)

	log.Printf("Indexed snapshot %s into %s: files=%d points=%d",
		snapshotID, collection, run.stats.Files, run.stats.Points)
	return run.stats, nil
}

// startRun drops the collection first when Recreate is set.
func (ix *Indexer) startRun(ctx context.Context, embedder Embedder, id domain.SnapshotID, collection string) (*indexRun, error) {
	if ix.cfg.Recreate {
		if dropper, ok := ix.index.(collectionDropper); ok {
			if err := dropper.DeleteCollection(ctx, collection); err != nil {
				return nil, fmt.Errorf("failed to drop collection %s: %w", collection, err)
			}
		}
	}
	return &indexRun{
		ix:         ix,
		embedder:   embedder,
		collection: collection,
		stats:      &IndexStats{SnapshotID: id, Collection: collection},
	}, nil
}

type indexRun struct {
	ix         *Indexer
	embedder   Embedder
	collection string
	ensured    bool
	pending    []pendingPoint
	stats      *IndexStats
}

func (r *indexRun) indexFile(ctx context.Context, snapshotID domain.SnapshotID, name, chapter string) error {
	rc, err := r.ix.source.Open(ctx, snapshotID, name)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", name, err)
	}
	defer rc.Close()

	table, err := tariff.ReadTable(name, rc)
	if err != nil {
		return err
	}
	columns := firstColumns(table.Header)

	for i, row := range table.Rows {
		payload := domain.NewPayload(
			domain.Field{Key: domain.PayloadSnapshotID, Value: snapshotID.String()},
			domain.Field{Key: domain.PayloadChapter, Value: chapter},
			domain.Field{Key: domain.PayloadRowIndex, Value: i},
			domain.Field{Key: domain.PayloadSourceCSV, Value: name},
		)
		for _, c := range columns {
			payload.Set(c.name, row[c.index])
		}

			if err := r.add(ctx, pendingPoint{
			id:      PointID(snapshotID, chapter, i),
			text:    PassagePrefix + RowText(chapter, table.Header, row),
			payload: payload,
		}); err != nil {
			return err
		}
	}
	return nil
}

// add queues p and flushes once a full batch is pending.
func (r *indexRun) add(ctx context.Context, p pendingPoint) error {
	r.pending = append(r.pending, p)
	if len(r.pending) >= r.ix.cfg.BatchSize {
		return r.flush(ctx)
	}
	return nil
}

// flush embeds and upserts the pending rows. The collection is created on
// the first flush, sized to the first vector.
func (r *indexRun) flush(ctx context.Context) error {
	if len(r.pending) == 0 {
		return nil
	}

	points := make([]domain.Point, 0, len(r.pending))
	for start := 0; start < len(r.pending); start += r.ix.cfg.EmbedBatchSize {
		end := min(start+r.ix.cfg.EmbedBatchSize, len(r.pending))
		chunk := r.pending[start:end]

		if err := r.ix.limiter.Wait(ctx); err != nil {
			return err
		}
		texts := make([]string, len(chunk))
		for i, p := range chunk {
			texts[i] = p.text
		}
		vectors, err := r.embedder.Embed(ctx, texts)
		if err != nil {
			return fmt.Errorf("failed to embed rows: %w", err)
		}
		if len(vectors) != len(chunk) {
			return fmt.Errorf("failed to embed rows: expected %d vectors, got %d", len(chunk), len(vectors))
		}
		for i, p := range chunk {
			points = append(points, domain.Point{ID: p.id, Vector: vectors[i], Payload: p.payload})
		}
	}

	if !r.ensured {
		if err := r.ix.index.EnsureCollection(ctx, r.collection, len(points[0].Vector)); err != nil {
			return fmt.Errorf("failed to create collection %s: %w", r.collection, err)
		}
		r.ensured = true
	}
	if err := r.ix.index.Upsert(ctx, r.collection, points); err != nil {
		return fmt.Errorf("failed to upsert into %s: %w", r.collection, err)
	}

	r.stats.Points += len(points)
	r.pending = r.pending[:0]
	return nil
}

// PointID is the deterministic id of a snapshot row.
func PointID(snapshotID domain.SnapshotID, chapter string, row int) string {
	name := fmt.Sprintf("%s:%s:%d", snapshotID, chapter, row)
	return uuid.NewSHA1(uuid.NameSpaceDNS, []byte(name)).String()
}

// RowText renders a row as "chapter: NN | col: val | ..." in header order,
// skipping empty values and repeated column names.
func RowText(chapter string, header, row []string) string {
	parts := []string{"chapter: " + chapter}
	for _, c := range firstColumns(header) {
		if c.index >= len(row) {
			continue
		}
		if v := strings.TrimSpace(row[c.index]); v != "" {
			parts = append(parts, c.name+": "+v)
		}
	}
	return strings.Join(parts, ContextSeparator)
}

type column struct {
	name  string
	index int
}

// firstColumns keeps the first occurrence of each header name.
func firstColumns(header []string) []column {
	seen := make(map[string]bool, len(header))
	out := make([]column, 0, len(header))
	for i, h := range header {
		if seen[h] {
			continue
		}
		seen[h] = true
		out = append(out, column{name: h, index: i})
	}
	return out
}

// chapterFromFileName reads "NN" out of "ch_NN.csv".
func chapterFromFileName(name string) (string, bool) {
	stem := strings.TrimSuffix(path.Base(name), path.Ext(name))
	if !strings.HasPrefix(stem, chapterFilePrefix) {
		return "", false
	}
	chapter := strings.TrimPrefix(stem, chapterFilePrefix)
	if chapter == "" {
		return "", false
	}
	return chapter, true
}
