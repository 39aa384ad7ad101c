package inference

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cloo-solutions/aqacs/internal/domain"
)

// QAConfig configures a QAClient.
type QAConfig struct {
	URL     string // question-answering pipeline endpoint
	Token   string
	Timeout time.Duration
}

// QAClient calls a Hugging Face question-answering endpoint, one context per
// call.
type QAClient struct {
	http httpClient
}

// NewQAClient creates a QAClient.
func NewQAClient(cfg QAConfig) (*QAClient, error) {
	if cfg.URL == "" {
		return nil, errors.New("inference: QA URL is required")
	}
	return &QAClient{http: newHTTPClient(cfg.URL, cfg.Token, cfg.Timeout)}, nil
}

type qaInputs struct {
	Question string `json:"question"`
	Context  string `json:"context"`
}

type qaRequest struct {
	Inputs qaInputs `json:"inputs"`
}

type qaAnswer struct {
	Answer string  `json:"answer"`
	Score  float64 `json:"score"`
	Start  int     `json:"start"`
	End    int     `json:"end"`
}

// Extract returns the best answer span for question within passage.
// Servers reply with either a single object or a top-k list; the first
// element of a list is used.
func (c *QAClient) Extract(ctx context.Context, question, passage string) (domain.Extraction, error) {
	var raw json.RawMessage
	if err := c.http.postJSON(ctx, "", qaRequest{
		Inputs: qaInputs{Question: question, Context: passage},
	}, &raw); err != nil {
		return domain.Extraction{}, fmt.Errorf("question answering: %w", err)
	}

	answer, err := decodeQAAnswer(raw)
	if err != nil {
		return domain.Extraction{}, err
	}
	return domain.Extraction{
		Answer: answer.Answer,
		Score:  answer.Score,
		Start:  answer.Start,
		End:    answer.End,
	}, nil
}

func decodeQAAnswer(raw json.RawMessage) (qaAnswer, error) {
	var single qaAnswer
	if err := json.Unmarshal(raw, &single); err == nil {
		return single, nil
	}

	var list []qaAnswer
	if err := json.Unmarshal(raw, &list); err != nil {
		return qaAnswer{}, fmt.Errorf("question answering: unexpected response: %w", err)
	}
	if len(list) == 0 {
		return qaAnswer{}, nil
	}
	return list[0], nil
}
