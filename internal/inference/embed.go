package inference

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrEmptyInput is returned when there is nothing to embed.
var ErrEmptyInput = errors.New("inference: empty input")

// EmbedConfig configures an EmbedClient.
type EmbedConfig struct {
	URL     string // text-embeddings-inference base URL
	Token   string
	Timeout time.Duration
}

// EmbedClient calls the /embed route of a text-embeddings-inference server.
// The server decides the model; e5 models expect "query: " and "passage: "
// prefixes, which callers add.
type EmbedClient struct {
	http httpClient
}

// NewEmbedClient creates an EmbedClient.
func NewEmbedClient(cfg EmbedConfig) (*EmbedClient, error) {
	if cfg.URL == "" {
		return nil, errors.New("inference: embedding URL is required")
	}
	return &EmbedClient{http: newHTTPClient(cfg.URL, cfg.Token, cfg.Timeout)}, nil
}

type embedRequest struct {
	Inputs    []string `json:"inputs"`
	Normalize bool     `json:"normalize"`
	Truncate  bool     `json:"truncate"`
}

// Embed returns one normalized vector per text, in input order.
func (c *EmbedClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyInput
	}

	var vectors [][]float32
	err := c.http.postJSON(ctx, "/embed", embedRequest{
		Inputs:    texts,
		Normalize: true,
		Truncate:  true,
	}, &vectors)
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embed: expected %d vectors, got %d", len(texts), len(vectors))
	}
	return vectors, nil
}
