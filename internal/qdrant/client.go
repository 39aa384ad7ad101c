// Package qdrant is a small REST client for the Qdrant vector database.
// Collections use cosine distance.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cloo-solutions/aqacs/internal/domain"
)

// Error is a non-2xx reply from Qdrant.
type Error struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("qdrant %s %s failed: %d %s", e.Method, e.Path, e.StatusCode, e.Message)
}

// IsNotFound reports whether err is a Qdrant 404.
func IsNotFound(err error) bool {
	var qErr *Error
	return errors.As(err, &qErr) && qErr.StatusCode == http.StatusNotFound
}

type Config struct {
	URL     string
	APIKey  string
	Timeout time.Duration
}

// Client talks to one Qdrant instance.
type Client struct {
	url    string
	apiKey string
	client *http.Client
}

// NewClient creates a new Client
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		url:    strings.TrimRight(cfg.URL, "/"),
		apiKey: cfg.APIKey,
		client: &http.Client{Timeout: timeout},
	}
}

func collectionPath(name string) string {
	return "/collections/" + url.PathEscape(name)
}

// CollectionExists reports whether the collection is present.
func (c *Client) CollectionExists(ctx context.Context, collection string) (bool, error) {
	err := c.do(ctx, http.MethodGet, collectionPath(collection), nil, nil)
	if err == nil {
		return true, nil
	}
	if IsNotFound(err) {
		return false, nil
	}
	return false, err
}

// EnsureCollection creates the collection with the given vector size when it
// does not exist yet.
func (c *Client) EnsureCollection(ctx context.Context, collection string, dimension int) error {
	if dimension <= 0 {
		return errors.New("qdrant: invalid dimension")
	}
	exists, err := c.CollectionExists(ctx, collection)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	return c.do(ctx, http.MethodPut, collectionPath(collection), body, nil)
}

// DeleteCollection drops the collection. Missing collections are not an error.
func (c *Client) DeleteCollection(ctx context.Context, collection string) error {
	err := c.do(ctx, http.MethodDelete, collectionPath(collection), nil, nil)
	if IsNotFound(err) {
		return nil
	}
	return err
}

type point struct {
	ID      string         `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload domain.Payload `json:"payload"`
}

// Upsert writes points and waits until they are searchable.
func (c *Client) Upsert(ctx context.Context, collection string, points []domain.Point) error {
	if len(points) == 0 {
		return nil
	}
	body := struct {
		Points []point `json:"points"`
	}{Points: make([]point, len(points))}
	for i, p := range points {
		body.Points[i] = point{ID: p.ID, Vector: p.Vector, Payload: p.Payload}
	}
	return c.do(ctx, http.MethodPut, collectionPath(collection)+"/points?wait=true", body, nil)
}

type searchRequest struct {
	Vector      []float32 `json:"vector"`
	Limit       int       `json:"limit"`
	WithPayload bool      `json:"with_payload"`
}

type scoredPoint struct {
	ID      json.RawMessage `json:"id"`
	Score   float64         `json:"score"`
	Payload domain.Payload  `json:"payload"`
}

// Search returns the nearest points, best first.
func (c *Client) Search(ctx context.Context, collection string, vector []float32, limit int) ([]domain.Hit, error) {
	if limit <= 0 {
		limit = 5
	}
	var resp struct {
		Result []scoredPoint `json:"result"`
	}
	err := c.do(ctx, http.MethodPost, collectionPath(collection)+"/points/search", searchRequest{
		Vector:      vector,
		Limit:       limit,
		WithPayload: true,
	}, &resp)
	if err != nil {
		return nil, err
	}

	hits := make([]domain.Hit, 0, len(resp.Result))
	for _, r := range resp.Result {
		hits = append(hits, domain.Hit{
			ID:      pointID(r.ID),
			Score:   r.Score,
			Payload: r.Payload,
		})
	}
	return hits, nil
}

// pointID renders a UUID or integer id as a string.
func pointID(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("qdrant: failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url+path, reader)
	if err != nil {
		return fmt.Errorf("qdrant: failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("api-key", c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return &Error{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(resp.Body, resp.Status),
		}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("qdrant: failed to decode response: %w", err)
	}
	return nil
}

func errorMessage(body io.Reader, fallback string) string {
	data, _ := io.ReadAll(io.LimitReader(body, 4096))
	var parsed struct {
		Status struct {
			Error string `json:"error"`
		} `json:"status"`
	}
	if json.Unmarshal(data, &parsed) == nil && parsed.Status.Error != "" {
		return parsed.Status.Error
	}
	if s := strings.TrimSpace(string(data)); s != "" {
		return s
	}
	return fallback
}
