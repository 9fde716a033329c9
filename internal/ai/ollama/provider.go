// Package ollama implements models.AIProvider against a local Ollama server.
package ollama

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

// Provider implements models.AIProvider using Ollama's /api/generate endpoint.
// Ollama is text-only here, so photo body-fat estimation is unsupported.
type Provider struct {
	cfg    config.OllamaConfig
	client *http.Client
}

func NewProvider(cfg config.OllamaConfig) *Provider {
	return &Provider{
		cfg:    cfg,
		client: &http.Client{Timeout: 120 * time.Second},
	}
}

func (p *Provider) Name() string { return "ollama" }

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
	Format string `json:"format,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

func (p *Provider) InterpretWeek(ctx context.Context, req models.WeeklyInterpretationRequest) (models.WeeklyInterpretation, error) {
	raw, err := p.generate(ctx, prompt.Weekly(req), "json")
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
	raw, err := p.generate(ctx, prompt.CheatMeal(req), "")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(raw), nil
}

func (p *Provider) generate(ctx context.Context, prompt, format string) (string, error) {
	body, err := json.Marshal(generateRequest{
		Model:  p.cfg.Model,
		Prompt: prompt,
		Stream: false,
		Format: format,
	})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	url := strings.TrimRight(p.cfg.BaseURL, "/") + "/api/generate"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("%w: ollama returned %d: %s", models.ErrProviderUnavailable, resp.StatusCode, msg)
	}

	var gen generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&gen); err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrInvalidResponse, err)
	}
	return gen.Response, nil
}

var _ models.AIProvider = (*Provider)(nil)
