// Package ocr extracts text from uploaded documents through the OCR service.
package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ErrNoText is returned when a document yielded no text.
var ErrNoText = errors.New("no text extracted from document")

// DocumentExtensions lists the accepted document extensions.
var DocumentExtensions = []string{".pdf", ".docx", ".txt"}

// Supported reports whether filename has an accepted document extension.
func Supported(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, e := range DocumentExtensions {
		if e == ext {
			return true
		}
	}
	return false
}

// Extractor returns the text content of one document.
type Extractor interface {
	ExtractText(ctx context.Context, doc io.Reader, filename string) (string, error)
}

// HTTPExtractor calls the OCR service's extract endpoint.
type HTTPExtractor struct {
	baseURL    string
	httpClient *http.Client
	tracer     trace.Tracer
	breaker    *gobreaker.CircuitBreaker
	logger     *zap.Logger
}

type extractResponse struct {
	Text  string `json:"text"`
	Pages int    `json:"pages,omitempty"`
}

// NewHTTPExtractor creates a client for the OCR service at baseURL.
func NewHTTPExtractor(baseURL string, timeout time.Duration, logger *zap.Logger) *HTTPExtractor {
	settings := gobreaker.Settings{
		Name:        "ocr-service",
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

	return &HTTPExtractor{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		tracer:  otel.Tracer("ocr-client"),
		breaker: gobreaker.NewCircuitBreaker(settings),
		logger:  logger,
	}
}

// ExtractText implements Extractor.
func (c *HTTPExtractor) ExtractText(ctx context.Context, doc io.Reader, filename string) (string, error) {
	ctx, span := c.tracer.Start(ctx, "ocr.extract_text")
	defer span.End()

	span.SetAttributes(attribute.String("filename", filename))

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.extractInternal(ctx, doc, filename)
	})
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to extract text from %s: %w", filename, err)
	}

	text := result.(string)
	span.SetAttributes(attribute.Int("text_chars", len(text)))
	return text, nil
}

func (c *HTTPExtractor) extractInternal(ctx context.Context, doc io.Reader, filename string) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, doc); err != nil {
		return "", fmt.Errorf("failed to read document: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("failed to finish multipart body: %w", err)
	}

	url := fmt.Sprintf("%s/extract", c.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, &body)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())

	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(httpReq.Header))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, err := io.ReadAll(resp.Body)
		if err != nil {
			return "", fmt.Errorf("ocr service returned status %d (failed to read body: %w)", resp.StatusCode, err)
		}
		return "", fmt.Errorf("ocr service returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var out extractResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	text := strings.TrimSpace(out.Text)
	if text == "" {
		return "", ErrNoText
	}

	c.logger.Debug("document text extracted",
		zap.String("filename", filename),
		zap.Int("pages", out.Pages),
		zap.Int("chars", len(text)))
	return text, nil
}

// IsHealthy checks the OCR service health endpoint.
func (c *HTTPExtractor) IsHealthy(ctx context.Context) bool {
	ctx, span := c.tracer.Start(ctx, "ocr.health_check")
	defer span.End()

	if c.breaker.State() == gobreaker.StateOpen {
		span.SetAttributes(attribute.Bool("healthy", false), attribute.String("reason", "circuit_breaker_open"))
		return false
	}

	httpReq, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/health", nil)
	if err != nil {
		span.RecordError(err)
		return false
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(httpReq)
	if err != nil {
		span.RecordError(err)
		return false
	}
	defer resp.Body.Close()

	healthy := resp.StatusCode == http.StatusOK
	span.SetAttributes(attribute.Bool("healthy", healthy))
	return healthy
}

// PlainText reads .txt uploads locally and hands everything else to next.
type PlainText struct {
	Next Extractor
}

// ExtractText implements Extractor.
func (p PlainText) ExtractText(ctx context.Context, doc io.Reader, filename string) (string, error) {
	if strings.ToLower(filepath.Ext(filename)) != ".txt" {
		if p.Next == nil {
			return "", fmt.Errorf("no extractor configured for %s", filename)
		}
		return p.Next.ExtractText(ctx, doc, filename)
	}
	data, err := io.ReadAll(doc)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", filename, err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", ErrNoText
	}
	return text, nil
}
