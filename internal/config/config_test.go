package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestLoad_EnvAndDefaults(t *testing.T) {
	cfg, err := Load(envMap(map[string]string{
		"JWT_SECRET":     "secret",
		"OPENAI_API_KEY": "sk-test",
		"PORT":           "9090",
	}))
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "info", cfg.Server.LogLevel)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "gpt-4o", cfg.LLM.Model)
	assert.Equal(t, 0.3, cfg.LLM.Temperature)
	assert.Equal(t, 4000, cfg.LLM.MaxTokens)
	assert.Equal(t, 2*time.Minute, cfg.LLM.Timeout)
	assert.Equal(t, "whisper-1", cfg.Transcription.Model)
	assert.Equal(t, int64(25<<20), cfg.Uploads.MaxBytes)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, "sk-test", cfg.LLM.APIKey())
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: "7000"
  log_level: debug
auth:
  jwt_secret: from-file
llm:
  provider: gemini
  model: gemini-2.0-flash
  gemini_api_key: g-key
  timeout: 90s
ocr:
  url: http://ocr:8000
`), 0o600))

	cfg, err := Load(envMap(map[string]string{
		"CONFIG_FILE": path,
		"PORT":        "7100",
	}))
	require.NoError(t, err)

	assert.Equal(t, "7100", cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Server.LogLevel)
	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, "g-key", cfg.LLM.APIKey())
	assert.Equal(t, 90*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, "http://ocr:8000", cfg.OCR.URL)
}

func TestWriteTimeout_CoversEveryCollaborator(t *testing.T) {
	cfg, err := Load(envMap(map[string]string{"JWT_SECRET": "secret", "OPENAI_API_KEY": "sk-test"}))
	require.NoError(t, err)
	assert.Equal(t, 6*time.Minute+30*time.Second, cfg.WriteTimeout())

	cfg.LLM.Timeout = time.Minute
	cfg.OCR.Timeout = 3 * time.Minute
	assert.Greater(t, cfg.WriteTimeout(), cfg.LLM.Timeout+cfg.OCR.Timeout+cfg.LLM.Timeout)
}

func TestLoadFromReader_UnknownField(t *testing.T) {
	_, err := LoadFromReader(strings.NewReader("server:\n  prot: 8080\n"))
	assert.ErrorContains(t, err, "decode yaml")
}

func TestValidate_JoinsErrors(t *testing.T) {
	_, err := Load(envMap(map[string]string{
		"PORT":         "http",
		"LOG_LEVEL":    "loud",
		"LLM_PROVIDER": "bard",
	}))
	require.Error(t, err)

	msg := err.Error()
	for _, want := range []string{"server.port", "server.log_level", "jwt_secret", "llm.provider"} {
		assert.Contains(t, msg, want)
	}
}

func TestLoad_BadEnvValues(t *testing.T) {
	_, err := Load(envMap(map[string]string{
		"JWT_SECRET":       "s",
		"OPENAI_API_KEY":   "k",
		"LLM_TIMEOUT":      "soon",
		"MAX_UPLOAD_BYTES": "lots",
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LLM_TIMEOUT")
	assert.Contains(t, err.Error(), "MAX_UPLOAD_BYTES")
}
