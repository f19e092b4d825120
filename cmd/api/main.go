package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	_ "github.com/bizmatters/deviation-service/docs" // swagger docs
	"github.com/bizmatters/deviation-service/internal/audit"
	"github.com/bizmatters/deviation-service/internal/auth"
	"github.com/bizmatters/deviation-service/internal/config"
	"github.com/bizmatters/deviation-service/internal/gateway"
	"github.com/bizmatters/deviation-service/internal/llm"
	"github.com/bizmatters/deviation-service/internal/metrics"
	"github.com/bizmatters/deviation-service/internal/ocr"
	"github.com/bizmatters/deviation-service/internal/orchestration"
	"github.com/bizmatters/deviation-service/internal/telemetry"
	"github.com/bizmatters/deviation-service/internal/transcribe"
)

// @title Deviation Service API
// @version 1.0
// @description Drafts and revises pharmaceutical deviation documents from meeting audio,
// @description uploaded documents and spoken instructions.
// @description
// @description Incident analysis, impact assessment, investigation, QTA revision, QTA review
// @description and quality review workflows with per-minute, final and repeat stages.

// @contact.name API Support
// @contact.email support@bizmatters.dev

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the JWT token.

// Version is set at build time.
var Version = "dev"

func main() {
	cfg, err := config.Load(os.Getenv)
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger, err := newLogger(cfg.Server)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

func newLogger(cfg config.ServerConfig) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	}
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx := context.Background()

	tcfg := telemetry.Config{ServiceName: "deviation-service", ServiceVersion: Version}
	if cfg.Server.TraceStdout {
		tcfg.TraceOutput = os.Stdout
	}
	shutdownTelemetry, err := telemetry.Init(ctx, tcfg)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			logger.Warn("telemetry shutdown failed", zap.Error(err))
		}
	}()

	revisionMetrics, err := metrics.NewRevisionMetrics()
	if err != nil {
		return fmt.Errorf("failed to create metrics: %w", err)
	}

	// The database is optional: without it login and the audit log are off.
	var pool *pgxpool.Pool
	var events *audit.PostgresRecorder
	var recorder audit.Recorder = audit.Nop{}
	if cfg.Database.URL != "" {
		pool, err = connect(ctx, cfg.Database.URL, logger)
		if err != nil {
			return err
		}
		defer pool.Close()
		events = audit.NewPostgresRecorder(pool)
		if err := events.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
		recorder = events
	} else {
		logger.Warn("DATABASE_URL not set; login and audit log disabled")
	}

	completer, err := llm.New(ctx, llm.Config{
		Provider: cfg.LLM.Provider,
		APIKey:   cfg.LLM.APIKey(),
		BaseURL:  cfg.LLM.BaseURL,
		Settings: llm.Settings{
			Model:       cfg.LLM.Model,
			Temperature: cfg.LLM.Temperature,
			MaxTokens:   cfg.LLM.MaxTokens,
			Timeout:     cfg.LLM.Timeout,
		},
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to create llm client: %w", err)
	}

	opts := []orchestration.Option{
		orchestration.WithRecorder(recorder),
		orchestration.WithMetrics(revisionMetrics),
	}
	if cfg.LLM.OpenAIAPIKey != "" {
		whisper, err := transcribe.NewWhisper(cfg.LLM.OpenAIAPIKey, cfg.Transcription.BaseURL,
			cfg.Transcription.Model, cfg.LLM.Timeout, logger)
		if err != nil {
			return fmt.Errorf("failed to create transcriber: %w", err)
		}
		opts = append(opts, orchestration.WithTranscriber(whisper))
	} else {
		logger.Warn("OPENAI_API_KEY not set; audio transcription disabled")
	}
	extractor := ocr.PlainText{}
	if cfg.OCR.URL != "" {
		extractor.Next = ocr.NewHTTPExtractor(cfg.OCR.URL, cfg.OCR.Timeout, logger)
	} else {
		logger.Warn("OCR_SERVICE_URL not set; only .txt documents can be read")
	}
	opts = append(opts, orchestration.WithExtractor(extractor))

	service := orchestration.NewService(completer, logger, opts...)

	jwtManager, err := auth.NewJWTManager(cfg.Auth.JWTSecret)
	if err != nil {
		return fmt.Errorf("failed to initialize JWT manager: %w", err)
	}

	handler := gateway.NewHandler(service, jwtManager, pool, events, gateway.Config{
		MaxUploadBytes: cfg.Uploads.MaxBytes,
		TokenTTL:       cfg.Auth.TokenTTL,
	}, logger)

	if !cfg.Server.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), gateway.RequestID(), gateway.RequestLogger(logger))

	// Health checks MUST be at the root for the WebService standard
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	router.GET("/ready", func(c *gin.Context) {
		if pool != nil {
			if err := pool.Ping(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"status": "not ready",
					"error":  "database connection failed",
				})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	router.GET("/metrics", gin.WrapH(telemetry.MetricsHandler()))
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	handler.RegisterRoutes(router.Group("/api"))

	server := &http.Server{
		Addr:        ":" + cfg.Server.Port,
		Handler:     router,
		ReadTimeout: 60 * time.Second,
		WriteTimeout: cfg.WriteTimeout(),
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting deviation service", zap.String("port", cfg.Server.Port), zap.String("version", Version))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
wait:
	for {
		select {
		case err := <-serverErr:
			return fmt.Errorf("failed to start server: %w", err)
		case <-hup:
			rotateSecret(ctx, jwtManager, logger)
		case <-quit:
			break wait
		}
	}
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("server exited")
	return nil
}

// rotateSecret reloads the configuration and swaps in its JWT secret.
// Tokens signed with the previous secret stop validating.
func rotateSecret(ctx context.Context, jm *auth.JWTManager, logger *zap.Logger) {
	cfg, err := config.Load(os.Getenv)
	if err != nil {
		logger.Error("config reload failed; keeping current JWT secret", zap.Error(err))
		return
	}
	if err := jm.RotateSigningKey(ctx, cfg.Auth.JWTSecret); err != nil {
		logger.Error("JWT secret rotation failed", zap.Error(err))
		return
	}
	logger.Info("JWT secret rotated")
}

// connect opens the pool, retrying while the database starts up.
func connect(ctx context.Context, url string, logger *zap.Logger) (*pgxpool.Pool, error) {
	const attempts = 10
	var err error
	for i := 0; i < attempts; i++ {
		var pool *pgxpool.Pool
		pool, err = pgxpool.New(ctx, url)
		if err == nil {
			if err = pool.Ping(ctx); err == nil {
				logger.Info("connected to PostgreSQL")
				return pool, nil
			}
			pool.Close()
		}
		logger.Warn("waiting for database", zap.Int("attempt", i+1), zap.Int("of", attempts), zap.Error(err))
		time.Sleep(3 * time.Second)
	}
	return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", attempts, err)
}
