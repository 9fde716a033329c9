// Package openai implements models.AIProvider against the OpenAI chat
// completions API.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/controlfit/controlfit/internal/ai/prompt"
	"github.com/controlfit/controlfit/internal/config"
	"github.com/controlfit/controlfit/pkg/models"
)

const baseURL = "https://api.openai.com/v1"

// Provider implements models.AIProvider using OpenAI chat completions.
// Photo body-fat estimation is unsupported: we never upload user photos to a
// third party.
type Provider struct {
	cfg    config.OpenAIConfig
	client *http.Client
}

func NewProvider(cfg config.OpenAIConfig) *Provider {
	return &Provider{
		cfg:    cfg,
		client: &http.Client{Timeout: 120 * time.Second},
	}
}

func (p *Provider) Name() string { return "openai" }

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	ResponseFormat *respFormat   `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type respFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (p *Provider) InterpretWeek(ctx context.Context, req models.WeeklyInterpretationRequest) (models.WeeklyInterpretation, error) {
	raw, err := p.complete(ctx, prompt.Weekly(req), true)
	if err != nil {
		return models.WeeklyInterpretation{}, err
	}

	var out models.WeeklyInterpretation
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return models.WeeklyInterpretation{}, fmt.Errorf("%w: %v", models.ErrInvalidResponse, err)
	}
	return out, nil
}

func (p *Provider) EstimateBodyFat(_ context.Context, _ models.BodyFatRequest) (models.BodyFatEstimate, error) {
	return models.BodyFatEstimate{}, models.ErrUnsupported
}

func (p *Provider) InterpretCheatMeal(ctx context.Context, req models.CheatMealRequest) (string, error) {
	raw, err := p.complete(ctx, prompt.CheatMeal(req), false)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(raw), nil
}

func (p *Provider) complete(ctx context.Context, userPrompt string, jsonMode bool) (string, error) {
	reqBody := chatRequest{
		Model: p.cfg.Model,
		Messages: []chatMessage{
			{Role: "user", Content: userPrompt},
		},
	}
	if jsonMode {
		reqBody.ResponseFormat = &respFormat{Type: "json_object"}
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("%w: openai returned %d: %s", models.ErrProviderUnavailable, resp.StatusCode, msg)
	}

	var chat chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrInvalidResponse, err)
	}
	if len(chat.Choices) == 0 {
		return "", fmt.Errorf("%w: empty choices", models.ErrInvalidResponse)
	}
	return chat.Choices[0].Message.Content, nil
}

var _ models.AIProvider = (*Provider)(nil)
