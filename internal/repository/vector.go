package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/cloo-solutions/aqacs/internal/domain"
)

// ErrCollectionNotFound is returned when searching a collection that was
// never created.
var ErrCollectionNotFound = errors.New("vector collection not found")

// VectorRepository stores snapshot collections in Postgres with pgvector.
// Scores are cosine similarity, 1 - cosine distance.
type VectorRepository struct {
	pool *pgxpool.Pool
}

func NewVectorRepository(pool *pgxpool.Pool) *VectorRepository {
	return &VectorRepository{pool: pool}
}

// EnsureCollection registers the collection. An existing collection must
// have the same dimension.
func (r *VectorRepository) EnsureCollection(ctx context.Context, collection string, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO vector_collections (name, dimension) VALUES ($1, $2)
		 ON CONFLICT (name) DO NOTHING`,
		collection, dimension,
	)
	if err != nil {
		return err
	}

	var existing int
	if err := r.pool.QueryRow(ctx,
		`SELECT dimension FROM vector_collections WHERE name = $1`, collection,
	).Scan(&existing); err != nil {
		return err
	}
	if existing != dimension {
		return fmt.Errorf("collection %s has dimension %d, not %d", collection, existing, dimension)
	}
	return nil
}

// DeleteCollection drops a collection and its points.
func (r *VectorRepository) DeleteCollection(ctx context.Context, collection string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM vector_collections WHERE name = $1`, collection)
	return err
}

// Upsert writes points in one transaction.
func (r *VectorRepository) Upsert(ctx context.Context, collection string, points []domain.Point) error {
	if len(points) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}

	batch := &pgx.Batch{}
	for _, p := range points {
		payload, err := json.Marshal(p.Payload)
		if err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("failed to encode payload of %s: %w", p.ID, err)
		}
		batch.Queue(
			`INSERT INTO vector_points (collection, point_id, payload, embedding)
			 VALUES ($1, $2, $3, $4)
			 ON CONFLICT (collection, point_id)
			 DO UPDATE SET payload = EXCLUDED.payload, embedding = EXCLUDED.embedding, updated_at = now()`,
			collection, p.ID, string(payload), pgvector.NewVector(p.Vector),
		)
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

// Search returns the points nearest to vector, best first.
func (r *VectorRepository) Search(ctx context.Context, collection string, vector []float32, limit int) ([]domain.Hit, error) {
	if limit <= 0 {
		limit = 5
	}

	var exists bool
	if err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM vector_collections WHERE name = $1)`, collection,
	).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, collection)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT point_id::text, payload::text, 1 - (embedding <=> $1) AS score
		 FROM vector_points
		 WHERE collection = $2
		 ORDER BY embedding <=> $1
		 LIMIT $3`,
		pgvector.NewVector(vector), collection, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	hits := make([]domain.Hit, 0, limit)
	for rows.Next() {
		var hit domain.Hit
		var payload string
		if err := rows.Scan(&hit.ID, &payload, &hit.Score); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(payload), &hit.Payload); err != nil {
			return nil, fmt.Errorf("failed to decode payload of %s: %w", hit.ID, err)
		}
		hits = append(hits, hit)
	}

	return hits, rows.Err()
}
