package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

// Gemini completes prompts with the Gemini API.
type Gemini struct {
	client   *genai.Client
	settings Settings
	tracer   trace.Tracer
	breaker  *gobreaker.CircuitBreaker
	logger   *zap.Logger
}

// NewGemini creates a Gemini completer. baseURL may be empty.
func NewGemini(ctx context.Context, apiKey, baseURL string, settings Settings, logger *zap.Logger) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: api key must not be empty")
	}
	if settings.Model == "" {
		return nil, fmt.Errorf("gemini: model must not be empty")
	}

	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &Gemini{
		client:   client,
		settings: settings,
		tracer:   otel.Tracer("llm-gemini"),
		breaker:  newBreaker("llm-gemini", logger),
		logger:   logger,
	}, nil
}

// Complete implements Completer.
func (c *Gemini) Complete(ctx context.Context, prompt, systemPrompt string) (string, error) {
	ctx, span := c.tracer.Start(ctx, "llm.gemini.complete")
	defer span.End()

	span.SetAttributes(
		attribute.String("model", c.settings.Model),
		attribute.Int("prompt_chars", len(prompt)),
	)

	if c.settings.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.settings.Timeout)
		defer cancel()
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.completeInternal(ctx, prompt, systemPrompt)
	})
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to complete prompt: %w", err)
	}

	text := result.(string)
	span.SetAttributes(attribute.Int("response_chars", len(text)))
	return text, nil
}

func (c *Gemini) completeInternal(ctx context.Context, prompt, systemPrompt string) (string, error) {
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(c.settings.Temperature)),
	}
	if c.settings.MaxTokens > 0 {
		config.MaxOutputTokens = int32(c.settings.MaxTokens)
	}
	if systemPrompt != "" {
		config.SystemInstruction = genai.NewContentFromText(systemPrompt, genai.RoleUser)
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.settings.Model,
		[]*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}, config)
	if err != nil {
		return "", fmt.Errorf("gemini request failed: %w", err)
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
