// Package ai wires AI providers that turn deterministic metrics into
// interpretive text. Providers are opaque collaborators: the feedback core
// only sees the models.AIProvider interface.
package ai

import (
	"fmt"

	"github.com/controlfit/controlfit/internal/ai/mock"
	"github.com/controlfit/controlfit/internal/ai/ollama"
	"github.com/controlfit/controlfit/internal/ai/openai"
	"github.com/controlfit/controlfit/internal/config"
	"github.com/controlfit/controlfit/pkg/models"
)

// NewProvider constructs the appropriate AI provider based on config.
// Called once at server startup.
func NewProvider(cfg config.AIConfig) (models.AIProvider, error) {
	switch cfg.Provider {
	case "mock":
		return mock.NewProvider(), nil
	case "ollama":
		return ollama.NewProvider(cfg.Ollama), nil
	case "openai":
		return openai.NewProvider(cfg.OpenAI), nil
	default:
		return nil, fmt.Errorf("unknown AI provider %q: must be one of mock, ollama, openai", cfg.Provider)
	}
}
