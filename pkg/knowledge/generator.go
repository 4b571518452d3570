package knowledge

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Supported backends.
const (
	BackendGemini    = "gemini"
	BackendOpenAI    = "openai"
	BackendAnthropic = "anthropic"
)

// ErrAPIKeyRequired is returned when a hosted backend has no API key.
var ErrAPIKeyRequired = errors.New("API key required")

// Generator sends a rendered prompt to a language model and returns its reply.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// NewGenerator builds the backend named by cfg.Backend. cfg.Model is the model
// location handed to that backend.
func NewGenerator(ctx context.Context, cfg Config) (Generator, error) {
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, errors.New("model location is not configured")
	}

	switch strings.ToLower(cfg.Backend) {
	case BackendGemini:
		return NewGeminiGenerator(ctx, cfg)
	case BackendOpenAI, "":
		return NewOpenAIGenerator(cfg), nil
	case BackendAnthropic:
		return NewAnthropicGenerator(cfg)
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}
