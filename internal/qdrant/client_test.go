package qdrant

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/aqacs/internal/domain"
)

type recordedRequest struct {
	Method string
	Path   string
	Query  string
	APIKey string
	Body   string
}

func fakeQdrant(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) (*Client, *[]recordedRequest) {
	t.Helper()
	var requests []recordedRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		requests = append(requests, recordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			APIKey: r.Header.Get("api-key"),
			Body:   string(body),
		})
		handler(w, r)
	}))
	t.Cleanup(server.Close)
	return NewClient(Config{URL: server.URL, APIKey: "secret"}), &requests
}

func TestEnsureCollection_CreatesWhenMissing(t *testing.T) {
	client, requests := fakeQdrant(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"status":{"error":"Not found: Collection us_hts_S1 doesn't exist!"}}`))
			return
		}
		w.Write([]byte(`{"result":true,"status":"ok"}`))
	})

	require.NoError(t, client.EnsureCollection(context.Background(), "us_hts_S1", 384))

	require.Len(t, *requests, 2)
	create := (*requests)[1]
	assert.Equal(t, http.MethodPut, create.Method)
	assert.Equal(t, "/collections/us_hts_S1", create.Path)
	assert.Equal(t, "secret", create.APIKey)
	assert.JSONEq(t, `{"vectors":{"size":384,"distance":"Cosine"}}`, create.Body)
}

func TestEnsureCollection_ExistingIsLeftAlone(t *testing.T) {
	client, requests := fakeQdrant(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"result":{"status":"green"},"status":"ok"}`))
	})

	require.NoError(t, client.EnsureCollection(context.Background(), "us_hts_S1", 384))
	assert.Len(t, *requests, 1)

	assert.Error(t, client.EnsureCollection(context.Background(), "us_hts_S1", 0))
}

func TestUpsert_KeepsPayloadOrder(t *testing.T) {
	client, requests := fakeQdrant(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"result":{"status":"completed"},"status":"ok"}`))
	})

	payload := domain.NewPayload(
		domain.Field{Key: "snapshot_id", Value: "S1"},
		domain.Field{Key: "chapter", Value: 1},
		domain.Field{Key: "HTS Number", Value: "0101.21.00"},
	)
	err := client.Upsert(context.Background(), "us_hts_S1", []domain.Point{
		{ID: "5f0c6e1e-0000-5000-8000-000000000000", Vector: []float32{0.5, 0.25}, Payload: payload},
	})
	require.NoError(t, err)

	req := (*requests)[0]
	assert.Equal(t, http.MethodPut, req.Method)
	assert.Equal(t, "/collections/us_hts_S1/points", req.Path)
	assert.Equal(t, "wait=true", req.Query)
	assert.Contains(t, req.Body, `"payload":{"snapshot_id":"S1","chapter":1,"HTS Number":"0101.21.00"}`)

	require.NoError(t, client.Upsert(context.Background(), "us_hts_S1", nil))
	assert.Len(t, *requests, 1, "empty upsert is a no-op")
}

func TestSearch_DecodesHits(t *testing.T) {
	client, requests := fakeQdrant(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"result":[
			{"id":"a1","score":0.91,"payload":{"snapshot_id":"S1","chapter":1,"row_index":3,"Description":"Live horses"}},
			{"id":42,"score":0.5,"payload":{"chapter":84}}
		],"status":"ok"}`))
	})

	hits, err := client.Search(context.Background(), "us_hts_S1", []float32{0.1, 0.2}, 2)
	require.NoError(t, err)

	require.Len(t, hits, 2)
	assert.Equal(t, "a1", hits[0].ID)
	assert.InDelta(t, 0.91, hits[0].Score, 1e-9)
	assert.Equal(t, "Live horses", hits[0].Description())
	assert.Equal(t, "snapshot_id", hits[0].Payload.Fields()[0].Key)
	assert.Equal(t, "42", hits[1].ID)

	var body searchRequest
	require.NoError(t, json.Unmarshal([]byte((*requests)[0].Body), &body))
	assert.Equal(t, 2, body.Limit)
	assert.True(t, body.WithPayload)
}

func TestSearch_ErrorCarriesStatus(t *testing.T) {
	client, _ := fakeQdrant(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"status":{"error":"Collection us_hts_S9 doesn't exist"}}`))
	})

	_, err := client.Search(context.Background(), "us_hts_S9", []float32{0.1}, 5)

	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.Contains(t, err.Error(), "doesn't exist")
}

func TestSearch_Unreachable(t *testing.T) {
	client := NewClient(Config{URL: "http://127.0.0.1:1"})
	_, err := client.Search(context.Background(), "c", []float32{0.1}, 1)
	assert.Error(t, err)
	assert.False(t, IsNotFound(err))
}

func TestDeleteCollection_MissingIsFine(t *testing.T) {
	client, _ := fakeQdrant(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	assert.NoError(t, client.DeleteCollection(context.Background(), "gone"))
}
