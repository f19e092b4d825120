// Package llm provides the prompt-to-text collaborator used by every
// workflow, with OpenAI and Gemini backends.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// ErrEmptyResponse is returned when the provider answered without text.
var ErrEmptyResponse = errors.New("llm returned an empty response")

// Completer sends one prompt and returns the model's raw text.
type Completer interface {
	Complete(ctx context.Context, prompt, systemPrompt string) (string, error)
}

// Settings are shared by every backend.
type Settings struct {
	Model       string
	Temperature float64
	MaxTokens   int
	// Timeout bounds a single call. Calls are never retried.
	Timeout time.Duration
}

// DefaultSettings returns the settings used for analysis prompts.
func DefaultSettings() Settings {
	return Settings{
		Model:       "gpt-4o",
		Temperature: 0.3,
		MaxTokens:   4000,
		Timeout:     2 * time.Minute,
	}
}

// Config selects and configures a backend.
type Config struct {
	Provider string
	APIKey   string
	BaseURL  string
	Settings Settings
}

// New builds the backend named by cfg.Provider.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (Completer, error) {
	switch cfg.Provider {
	case "", "openai":
		return NewOpenAI(cfg.APIKey, cfg.BaseURL, cfg.Settings, logger)
	case "gemini":
		return NewGemini(ctx, cfg.APIKey, cfg.BaseURL, cfg.Settings, logger)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

func newBreaker(name string, logger *zap.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
}
