package coach

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/param"

	"github.com/abx-learn/backend/internal/logging"
)

// LLMClient is the interface both coach backends satisfy.
type LLMClient interface {
	Generate(ctx context.Context, systemPrompt string, userPrompt string) (*LLMResponse, error)
}

// LLMResponse holds the raw response content and token usage.
type LLMResponse struct {
	Content      string
	PromptTokens int
	OutputTokens int
}

// ── APIClient — Anthropic SDK ──────────────────────────────

type APIClient struct {
	client  *anthropic.Client
	model   string
	retries int
}

func NewAPIClient(apiKey, model string) *APIClient {
	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
	)
	return &APIClient{client: &client, model: model, retries: 2}
}

func (c *APIClient) Generate(ctx context.Context, systemPrompt string, userPrompt string) (*LLMResponse, error) {
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   2048,
		Temperature: param.NewOpt(0.4),
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	}

	message, err := c.callWithRetry(ctx, params)
	if err != nil {
		return nil, err
	}

	var responseText string
	for _, block := range message.Content {
		if block.Type == "text" {
			responseText = block.Text
			break
		}
	}

	if responseText == "" {
		return nil, fmt.Errorf("no text content in API response")
	}

	return &LLMResponse{
		Content:      responseText,
		PromptTokens: int(message.Usage.InputTokens),
		OutputTokens: int(message.Usage.OutputTokens),
	}, nil
}

func (c *APIClient) callWithRetry(ctx context.Context, params anthropic.MessageNewParams) (*anthropic.Message, error) {
	log := logging.WithComponent("coach")

	var lastErr error
	for attempt := 0; attempt < c.retries; attempt++ {
		if attempt > 0 {
			wait := time.Duration(1<<uint(attempt)) * time.Second
			log.Warn().Dur("wait", wait).Int("attempt", attempt+1).Msg("retrying anthropic call")
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
		}

		message, err := c.client.Messages.New(ctx, params)
		if err == nil {
			return message, nil
		}
		lastErr = err
		log.Warn().Err(err).Int("attempt", attempt+1).Msg("anthropic call failed")
	}
	return nil, fmt.Errorf("anthropic API failed after retries: %w", lastErr)
}

// ── MockClient — Local Development ─────────────────────────

// MockClient returns a canned plan built from the topics named in the prompt.
type MockClient struct{}

func NewMockClient() *MockClient {
	return &MockClient{}
}

func (m *MockClient) Generate(ctx context.Context, systemPrompt string, userPrompt string) (*LLMResponse, error) {
	var topics []string
	for _, line := range strings.Split(userPrompt, "\n") {
		if rest, ok := strings.CutPrefix(line, "- "); ok {
			topic, _, _ := strings.Cut(rest, ":")
			topics = append(topics, topic)
		}
	}

	var b strings.Builder
	b.WriteString("[Mock] Study plan\n")
	if len(topics) == 0 {
		b.WriteString("1. Keep practicing mixed quizzes to maintain your scores.\n")
	}
	for i, topic := range topics {
		fmt.Fprintf(&b, "%d. Review %s: re-read the key points, then retake a short quiz.\n", i+1, topic)
	}

	return &LLMResponse{
		Content:      b.String(),
		PromptTokens: len(userPrompt) / 4,
		OutputTokens: b.Len() / 4,
	}, nil
}
