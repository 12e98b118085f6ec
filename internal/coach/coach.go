// Package coach turns quiz statistics into a written study plan with an LLM.
package coach

import (
	"context"
	"fmt"
	"time"

	"github.com/abx-learn/backend/internal/logging"
	"github.com/abx-learn/backend/internal/metrics"
	"github.com/abx-learn/backend/internal/models"
)

// Config selects the backend. With Mock set, or without an API key, the
// coach uses MockClient.
type Config struct {
	Mock    bool
	APIKey  string
	Model   string
	Timeout time.Duration
}

type Coach struct {
	llm     LLMClient
	model   string
	timeout time.Duration
}

func New(cfg Config) *Coach {
	log := logging.WithComponent("coach")

	if cfg.Mock || cfg.APIKey == "" {
		log.Info().Msg("coach using mock plans")
		return NewWithClient(NewMockClient(), "mock", cfg.Timeout)
	}
	log.Info().Str("model", cfg.Model).Msg("coach using Anthropic API")
	return NewWithClient(NewAPIClient(cfg.APIKey, cfg.Model), cfg.Model, cfg.Timeout)
}

func NewWithClient(llm LLMClient, model string, timeout time.Duration) *Coach {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Coach{llm: llm, model: model, timeout: timeout}
}

func (c *Coach) ModelName() string {
	return c.model
}

// StudyPlan asks the model for a plan covering the learner's weak areas.
func (c *Coach) StudyPlan(ctx context.Context, stats models.QuizStats) (*models.StudyPlanResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.llm.Generate(ctx, SystemPrompt(), BuildUserPrompt(stats, stats.WeakAreas))
	metrics.RecordCoachRequest(start, err)
	if err != nil {
		return nil, fmt.Errorf("generate study plan: %w", err)
	}

	plan := cleanResponse(resp.Content)
	if plan == "" {
		return nil, fmt.Errorf("generate study plan: empty response")
	}

	logging.Ctx(ctx).Info().
		Str("component", "coach").
		Int("prompt_tokens", resp.PromptTokens).
		Int("output_tokens", resp.OutputTokens).
		Msg("study plan generated")

	return &models.StudyPlanResponse{
		WeakAreas: stats.WeakAreas,
		Plan:      plan,
		Model:     c.model,
	}, nil
}
