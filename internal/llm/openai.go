package llm

import (
	"context"
	"fmt"
	"strings"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// OpenAI completes prompts with the chat completions API.
type OpenAI struct {
	client   oai.Client
	settings Settings
	tracer   trace.Tracer
	breaker  *gobreaker.CircuitBreaker
	logger   *zap.Logger
}

// NewOpenAI creates an OpenAI completer. baseURL may be empty.
func NewOpenAI(apiKey, baseURL string, settings Settings, logger *zap.Logger) (*OpenAI, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai: api key must not be empty")
	}
	if settings.Model == "" {
		return nil, fmt.Errorf("openai: model must not be empty")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	return &OpenAI{
		client:   oai.NewClient(opts...),
		settings: settings,
		tracer:   otel.Tracer("llm-openai"),
		breaker:  newBreaker("llm-openai", logger),
		logger:   logger,
	}, nil
}

// Complete implements Completer.
func (c *OpenAI) Complete(ctx context.Context, prompt, systemPrompt string) (string, error) {
	ctx, span := c.tracer.Start(ctx, "llm.openai.complete")
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

func (c *OpenAI) completeInternal(ctx context.Context, prompt, systemPrompt string) (string, error) {
	var messages []oai.ChatCompletionMessageParamUnion
	if systemPrompt != "" {
		messages = append(messages, oai.SystemMessage(systemPrompt))
	}
	messages = append(messages, oai.UserMessage(prompt))

	params := oai.ChatCompletionNewParams{
		Model:       shared.ChatModel(c.settings.Model),
		Messages:    messages,
		Temperature: param.NewOpt(c.settings.Temperature),
	}
	if c.settings.MaxTokens > 0 {
		params.MaxTokens = param.NewOpt(int64(c.settings.MaxTokens))
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	text := resp.Choices[0].Message.Content
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}

	c.logger.Debug("openai completion",
		zap.String("model", resp.Model),
		zap.Int64("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int64("completion_tokens", resp.Usage.CompletionTokens))
	return text, nil
}
