package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/cloo-solutions/aqacs/internal/domain"
)

// DefaultQAModel is the chat model used for span extraction.
const DefaultQAModel = openai.GPT4oMini

const extractionPrompt = `You extract answers from tariff schedule rows.
Given a question and a context, copy the shortest span of the context that answers the question.
Do not paraphrase: the answer must appear verbatim in the context.
Reply with a JSON object {"answer": string, "score": number}, where score is your confidence between 0 and 1.
If the context does not answer the question, reply {"answer": "", "score": 0}.`

// ChatAPI is the chat completion call the Extractor depends on.
type ChatAPI interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Extractor answers a question from a single context with a chat model in
// JSON mode. Answers that are not a verbatim span of the context are dropped.
type Extractor struct {
	api   ChatAPI
	model string
}

// NewExtractor creates an extractor backed by the OpenAI chat API.
func NewExtractor(cfg Config, model string) *Extractor {
	return NewExtractorWithAPI(newAPIClient(cfg), model)
}

// NewExtractorWithAPI creates an extractor over an existing chat client.
func NewExtractorWithAPI(api ChatAPI, model string) *Extractor {
	if model == "" {
		model = DefaultQAModel
	}
	return &Extractor{api: api, model: model}
}

type extractionReply struct {
	Answer string  `json:"answer"`
	Score  float64 `json:"score"`
}

// Extract returns the answer span and the model's confidence.
func (e *Extractor) Extract(ctx context.Context, question, passage string) (domain.Extraction, error) {
	resp, err := e.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       e.model,
		Temperature: 0,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: extractionPrompt},
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf("Question: %s\n\nContext: %s", question, passage)},
		},
	})
	if err != nil {
		return domain.Extraction{}, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return domain.Extraction{}, errors.New("chat completion returned no choices")
	}

	var reply extractionReply
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &reply); err != nil {
		return domain.Extraction{}, fmt.Errorf("failed to decode extraction reply: %w", err)
	}

	answer := strings.TrimSpace(reply.Answer)
	start := strings.Index(passage, answer)
	if answer == "" || start < 0 {
		return domain.Extraction{}, nil
	}

	score := reply.Score
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}

	return domain.Extraction{
		Answer: answer,
		Score:  score,
		Start:  start,
		End:    start + len(answer),
	}, nil
}
