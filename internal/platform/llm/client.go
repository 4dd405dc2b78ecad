// Package llm wraps the chat completion provider used for advisory features.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
)

var ErrEmptyResponse = errors.New("llm returned no content")

// Request is one structured completion: the model must answer with a single
// JSON object matching Schema. ImageURLs are attached as image parts; data:
// URLs are allowed.
type Request struct {
	System    string
	Prompt    string
	Schema    json.RawMessage
	ImageURLs []string
}

type Client interface {
	Complete(ctx context.Context, req Request) (json.RawMessage, error)
}

// Forgetter is implemented by clients that remember replies.
type Forgetter interface {
	Forget(req Request)
}

type OpenAIClient struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	logger  zerolog.Logger
}

func NewOpenAIClient(apiKey, model string, timeout time.Duration, logger zerolog.Logger) *OpenAIClient {
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAIClient{
		client:  openai.NewClient(apiKey),
		model:   model,
		timeout: timeout,
		logger:  logger.With().Str("component", "llm").Logger(),
	}
}

func (c *OpenAIClient) Model() string { return c.model }

func (c *OpenAIClient) Complete(ctx context.Context, req Request) (json.RawMessage, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:          c.model,
		Messages:       BuildMessages(req),
		Temperature:    0.2,
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	c.logger.Debug().
		Dur("latency", time.Since(start)).
		Int("prompt_tokens", resp.Usage.PromptTokens).
		Int("completion_tokens", resp.Usage.CompletionTokens).
		Msg("completion finished")

	if len(resp.Choices) == 0 {
		return nil, ErrEmptyResponse
	}
	return ExtractJSON(resp.Choices[0].Message.Content)
}

// BuildMessages renders the system instructions, with the schema appended,
// and the user turn. The user turn becomes multi-part when images are attached.
func BuildMessages(req Request) []openai.ChatCompletionMessage {
	system := strings.TrimSpace(req.System)
	if len(req.Schema) > 0 {
		system += "\n\nRespond with a single JSON object that conforms to this JSON schema:\n" + string(req.Schema)
	}

	msgs := []openai.ChatCompletionMessage{{Role: openai.ChatMessageRoleSystem, Content: strings.TrimSpace(system)}}
	if len(req.ImageURLs) == 0 {
		return append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.Prompt})
	}

	parts := []openai.ChatMessagePart{{Type: openai.ChatMessagePartTypeText, Text: req.Prompt}}
	for _, u := range req.ImageURLs {
		parts = append(parts, openai.ChatMessagePart{
			Type:     openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{URL: u, Detail: openai.ImageURLDetailAuto},
		})
	}
	return append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, MultiContent: parts})
}

// ExtractJSON returns the JSON object in content, tolerating markdown fences.
func ExtractJSON(content string) (json.RawMessage, error) {
	s := strings.TrimSpace(content)
	if s == "" {
		return nil, ErrEmptyResponse
	}
	if i := strings.Index(s, "{"); i >= 0 {
		if j := strings.LastIndex(s, "}"); j > i {
			s = s[i : j+1]
		}
	}
	if !json.Valid([]byte(s)) {
		return nil, fmt.Errorf("llm response is not valid JSON")
	}
	return json.RawMessage(s), nil
}
