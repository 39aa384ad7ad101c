//go:build integration

package qdrant

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/aqacs/internal/domain"
	"github.com/cloo-solutions/aqacs/internal/testutil"
)

func TestClient_Qdrant(t *testing.T) {
	ctx := context.Background()
	qc := testutil.NewQdrantContainer(ctx, t)
	defer qc.Terminate(ctx)

	client := NewClient(Config{URL: qc.URL()})
	const collection = "us_hts_TEST"

	exists, err := client.CollectionExists(ctx, collection)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, client.EnsureCollection(ctx, collection, 3))
	require.NoError(t, client.EnsureCollection(ctx, collection, 3))

	horses := uuid.NewSHA1(uuid.NameSpaceDNS, []byte("TEST:01:0")).String()
	points := []domain.Point{
		{
			ID:     horses,
			Vector: []float32{1, 0, 0},
			Payload: domain.NewPayload(
				domain.Field{Key: domain.PayloadSnapshotID, Value: "TEST"},
				domain.Field{Key: domain.PayloadChapter, Value: "01"},
				domain.Field{Key: "Description", Value: "Live horses"},
			),
		},
		{
			ID:     uuid.NewSHA1(uuid.NameSpaceDNS, []byte("TEST:84:0")).String(),
			Vector: []float32{0, 1, 0},
			Payload: domain.NewPayload(
				domain.Field{Key: domain.PayloadChapter, Value: "84"},
				domain.Field{Key: "Description", Value: "Data processing machines"},
			),
		},
	}
	require.NoError(t, client.Upsert(ctx, collection, points))

	hits, err := client.Search(ctx, collection, []float32{0.9, 0.1, 0}, 5)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, horses, hits[0].ID)
	assert.Greater(t, hits[0].Score, hits[1].Score)
	assert.Equal(t, "Live horses", hits[0].Payload.String("Description"))

	require.NoError(t, client.DeleteCollection(ctx, collection))
	_, err = client.Search(ctx, collection, []float32{1, 0, 0}, 5)
	assert.True(t, IsNotFound(err))
}
