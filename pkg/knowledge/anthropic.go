package knowledge

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	anthropicopt "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rs/zerolog/log"
)

const (
	anthropicMaxRetries     = 3
	anthropicInitialBackoff = time.Second
	anthropicDefaultTokens  = 2048
)

// AnthropicGenerator calls the Claude Messages API with retry on 429 and 5xx.
type AnthropicGenerator struct {
	client         anthropic.Client
	params         anthropic.MessageNewParams
	maxRetries     int
	initialBackoff time.Duration
}

// NewAnthropicGenerator creates a generator. ANTHROPIC_API_KEY is used when
// cfg.APIKey is empty.
func NewAnthropicGenerator(cfg Config) (*AnthropicGenerator, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%w: set ANTHROPIC_API_KEY or extractor.api_key", ErrAPIKeyRequired)
	}

	// Retries are handled by Generate so every attempt is logged.
	opts := []anthropicopt.RequestOption{anthropicopt.WithAPIKey(apiKey), anthropicopt.WithMaxRetries(0)}
	if cfg.BaseURL != "" {
		opts = append(opts, anthropicopt.WithBaseURL(cfg.BaseURL))
	}

	maxTokens := int64(cfg.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = anthropicDefaultTokens
	}

	return &AnthropicGenerator{
		client: anthropic.NewClient(opts...),
		params: anthropic.MessageNewParams{
			Model:       anthropic.Model(cfg.Model),
			MaxTokens:   maxTokens,
			Temperature: anthropic.Float(float64(cfg.temperature())),
		},
		maxRetries:     anthropicMaxRetries,
		initialBackoff: anthropicInitialBackoff,
	}, nil
}

func (g *AnthropicGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	params := g.params
	params.Messages = []anthropic.MessageParam{
		anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
	}

	backoff := g.initialBackoff
	for attempt := 1; ; attempt++ {
		message, err := g.client.Messages.New(ctx, params)
		if err == nil {
			return messageText(message)
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		status, transient := classifyAnthropicError(err)
		if !transient || attempt > g.maxRetries {
			return "", fmt.Errorf("anthropic request failed (attempts=%d, status=%d): %w", attempt, status, err)
		}

		log.Debug().
			Str("model", string(params.Model)).
			Int("attempt", attempt).
			Int("status", status).
			Dur("backoff", backoff).
			Err(err).
			Msg("anthropic request failed, retrying")

		timer := time.NewTimer(backoff)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return "", ctx.Err()
		}
		backoff *= 2
	}
}

func messageText(message *anthropic.Message) (string, error) {
	for _, block := range message.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("anthropic reply has no text block (%d blocks)", len(message.Content))
}

// classifyAnthropicError reports the HTTP status (zero for transport errors)
// and whether another attempt may succeed: rate limits, overload, server
// errors and network timeouts.
func classifyAnthropicError(err error) (int, bool) {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode, apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= http.StatusInternalServerError
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return 0, true
	}
	return 0, false
}
