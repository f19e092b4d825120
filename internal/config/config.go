// Package config loads service configuration from an optional YAML file and
// the environment.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete service configuration.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Database      DatabaseConfig      `yaml:"database"`
	Auth          AuthConfig          `yaml:"auth"`
	LLM           LLMConfig           `yaml:"llm"`
	Transcription TranscriptionConfig `yaml:"transcription"`
	OCR           OCRConfig           `yaml:"ocr"`
	Uploads       UploadConfig        `yaml:"uploads"`
}

type ServerConfig struct {
	Port            string        `yaml:"port"`
	LogLevel        string        `yaml:"log_level"`
	Development     bool          `yaml:"development"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	// TraceStdout pretty-prints spans to stdout.
	TraceStdout bool `yaml:"trace_stdout"`
}

type DatabaseConfig struct {
	// URL is optional; without it login and the audit log are disabled.
	URL string `yaml:"url"`
}

type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

type LLMConfig struct {
	Provider     string        `yaml:"provider"`
	Model        string        `yaml:"model"`
	OpenAIAPIKey string        `yaml:"openai_api_key"`
	GeminiAPIKey string        `yaml:"gemini_api_key"`
	BaseURL      string        `yaml:"base_url"`
	Temperature  float64       `yaml:"temperature"`
	MaxTokens    int           `yaml:"max_tokens"`
	Timeout      time.Duration `yaml:"timeout"`
}

// APIKey returns the key for the configured provider.
func (c LLMConfig) APIKey() string {
	if c.Provider == "gemini" {
		return c.GeminiAPIKey
	}
	return c.OpenAIAPIKey
}

type TranscriptionConfig struct {
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

type OCRConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

type UploadConfig struct {
	MaxBytes int64 `yaml:"max_bytes"`
}

// WriteTimeout bounds one HTTP response. The slowest requests transcribe
// audio and extract documents before they call the model, so the deadline
// covers all three collaborator timeouts plus headroom for uploads.
func (c *Config) WriteTimeout() time.Duration {
	const headroom = 30 * time.Second
	// Transcription runs with the LLM timeout.
	return c.LLM.Timeout + c.OCR.Timeout + c.LLM.Timeout + headroom
}

// Load builds the configuration: the YAML file named by CONFIG_FILE (if
// any), then environment overrides, then defaults, then validation.
func Load(getenv func(string) string) (*Config, error) {
	cfg := &Config{}
	if path := getenv("CONFIG_FILE"); path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("config: open %q: %w", path, err)
		}
		defer f.Close()
		if cfg, err = decode(f); err != nil {
			return nil, fmt.Errorf("config: parse %q: %w", path, err)
		}
	}
	if err := applyEnv(cfg, getenv); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromReader decodes YAML from r, applies defaults and validates.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg, err := decode(r)
	if err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	return cfg, nil
}

func applyEnv(cfg *Config, getenv func(string) string) error {
	set := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	set(&cfg.Server.Port, "PORT")
	set(&cfg.Server.LogLevel, "LOG_LEVEL")
	set(&cfg.Database.URL, "DATABASE_URL")
	set(&cfg.Auth.JWTSecret, "JWT_SECRET")
	set(&cfg.LLM.Provider, "LLM_PROVIDER")
	set(&cfg.LLM.Model, "LLM_MODEL")
	set(&cfg.LLM.OpenAIAPIKey, "OPENAI_API_KEY")
	set(&cfg.LLM.GeminiAPIKey, "GEMINI_API_KEY")
	set(&cfg.LLM.BaseURL, "LLM_BASE_URL")
	set(&cfg.Transcription.Model, "TRANSCRIPTION_MODEL")
	set(&cfg.OCR.URL, "OCR_SERVICE_URL")

	var errs []error
	if v := getenv("LLM_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("LLM_TIMEOUT %q: %w", v, err))
		}
		cfg.LLM.Timeout = d
	}
	if v := getenv("MAX_UPLOAD_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("MAX_UPLOAD_BYTES %q: %w", v, err))
		}
		cfg.Uploads.MaxBytes = n
	}
	if v := getenv("DEV_MODE"); v != "" {
		dev, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("DEV_MODE %q: %w", v, err))
		}
		cfg.Server.Development = dev
	}
	return errors.Join(errs...)
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == "" {
		cfg.Server.Port = "8080"
	}
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = "info"
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 30 * time.Second
	}
	if cfg.Auth.TokenTTL == 0 {
		cfg.Auth.TokenTTL = 24 * time.Hour
	}
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = "openai"
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "gpt-4o"
	}
	if cfg.LLM.Temperature == 0 {
		cfg.LLM.Temperature = 0.3
	}
	if cfg.LLM.MaxTokens == 0 {
		cfg.LLM.MaxTokens = 4000
	}
	if cfg.LLM.Timeout == 0 {
		cfg.LLM.Timeout = 2 * time.Minute
	}
	if cfg.Transcription.Model == "" {
		cfg.Transcription.Model = "whisper-1"
	}
	if cfg.OCR.Timeout == 0 {
		cfg.OCR.Timeout = 2 * time.Minute
	}
	if cfg.Uploads.MaxBytes == 0 {
		cfg.Uploads.MaxBytes = 25 << 20
	}
}

// Validate returns a joined error listing every problem found.
func Validate(cfg *Config) error {
	var errs []error

	if _, err := strconv.Atoi(cfg.Server.Port); err != nil {
		errs = append(errs, fmt.Errorf("server.port %q is not a number", cfg.Server.Port))
	}
	switch cfg.Server.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("auth.jwt_secret (JWT_SECRET) is required"))
	}
	switch cfg.LLM.Provider {
	case "openai", "gemini":
	default:
		errs = append(errs, fmt.Errorf("llm.provider %q is invalid; valid values: openai, gemini", cfg.LLM.Provider))
	}
	if cfg.LLM.APIKey() == "" {
		errs = append(errs, fmt.Errorf("an API key for llm provider %q is required", cfg.LLM.Provider))
	}
	if cfg.LLM.Temperature < 0 || cfg.LLM.Temperature > 2 {
		errs = append(errs, fmt.Errorf("llm.temperature %v must be between 0 and 2", cfg.LLM.Temperature))
	}
	if cfg.LLM.Timeout < 0 {
		errs = append(errs, errors.New("llm.timeout must not be negative"))
	}
	if cfg.Uploads.MaxBytes < 0 {
		errs = append(errs, errors.New("uploads.max_bytes must not be negative"))
	}

	return errors.Join(errs...)
}
