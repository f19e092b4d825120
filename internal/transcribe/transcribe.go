// Package transcribe turns uploaded audio into text.
package transcribe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ErrEmptyTranscript is returned when the audio produced no text.
var ErrEmptyTranscript = errors.New("transcription returned no text")

// Extensions lists the accepted audio file extensions.
var Extensions = []string{".mp3", ".wav", ".m4a", ".flac", ".ogg", ".mp4"}

// Supported reports whether filename has an accepted audio extension.
func Supported(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, e := range Extensions {
		if e == ext {
			return true
		}
	}
	return false
}

// Transcriber converts one audio stream to text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error)
}

// Whisper transcribes through the OpenAI audio API.
type Whisper struct {
	client  oai.Client
	model   string
	timeout time.Duration
	tracer  trace.Tracer
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

// NewWhisper creates a Whisper transcriber. baseURL may be empty.
func NewWhisper(apiKey, baseURL, model string, timeout time.Duration, logger *zap.Logger) (*Whisper, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("whisper: api key must not be empty")
	}
	if model == "" {
		model = string(oai.AudioModelWhisper1)
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	settings := gobreaker.Settings{
		Name:        "transcription",
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
	}

	return &Whisper{
		client:  oai.NewClient(opts...),
		model:   model,
		timeout: timeout,
		tracer:  otel.Tracer("transcription"),
		breaker: gobreaker.NewCircuitBreaker(settings),
		logger:  logger,
	}, nil
}

// Transcribe implements Transcriber.
func (w *Whisper) Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error) {
	ctx, span := w.tracer.Start(ctx, "transcription.transcribe")
	defer span.End()

	span.SetAttributes(
		attribute.String("filename", filename),
		attribute.String("model", w.model),
	)

	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	result, err := w.breaker.Execute(func() (interface{}, error) {
		return w.transcribeInternal(ctx, audio, filename)
	})
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to transcribe %s: %w", filename, err)
	}

	text := result.(string)
	span.SetAttributes(attribute.Int("transcript_chars", len(text)))
	return text, nil
}

func (w *Whisper) transcribeInternal(ctx context.Context, audio io.Reader, filename string) (string, error) {
	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename)))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	resp, err := w.client.Audio.Transcriptions.New(ctx, oai.AudioTranscriptionNewParams{
		File:  oai.File(audio, filepath.Base(filename), contentType),
		Model: oai.AudioModel(w.model),
	})
	if err != nil {
		return "", fmt.Errorf("transcription request failed: %w", err)
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", ErrEmptyTranscript
	}
	return text, nil
}
