package ocr

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

func TestHTTPExtractor_ExtractText(t *testing.T) {
	tests := []struct {
		name           string
		serverResponse func(w http.ResponseWriter, r *http.Request)
		expectedError  string
		expectedResult string
	}{
		{
			name: "successful_extraction",
			serverResponse: func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "POST", r.Method)
				assert.Equal(t, "/extract", r.URL.Path)
				f, hdr, err := r.FormFile("file")
				require.NoError(t, err)
				defer f.Close()
				assert.Equal(t, "sop.pdf", hdr.Filename)
				data, _ := io.ReadAll(f)
				assert.Equal(t, "%PDF-1.4", string(data))

				w.Header().Set("Content-Type", "application/json")
				json.NewEncoder(w).Encode(map[string]any{"text": "SOP-123 Line clearance", "pages": 1})
			},
			expectedResult: "SOP-123 Line clearance",
		},
		{
			name: "server_error",
			serverResponse: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte("Internal server error"))
			},
			expectedError: "ocr service returned status 500",
		},
		{
			name: "invalid_json_response",
			serverResponse: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("invalid json"))
			},
			expectedError: "failed to decode response",
		},
		{
			name: "empty_text",
			serverResponse: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"text": "   "}`))
			},
			expectedError: ErrNoText.Error(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(tt.serverResponse))
			defer server.Close()

			client := NewHTTPExtractor(server.URL+"/", 5*time.Second, zaptest.NewLogger(t))
			got, err := client.ExtractText(context.Background(), strings.NewReader("%PDF-1.4"), "/tmp/x/sop.pdf")

			if tt.expectedError != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError)
				assert.Contains(t, err.Error(), "sop.pdf")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectedResult, got)
		})
	}
}

func TestHTTPExtractor_IsHealthy(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	assert.True(t, NewHTTPExtractor(server.URL, time.Second, zap.NewNop()).IsHealthy(context.Background()))
	assert.False(t, NewHTTPExtractor("http://127.0.0.1:1", time.Second, zap.NewNop()).IsHealthy(context.Background()))
}

type recordingExtractor struct{ called bool }

func (r *recordingExtractor) ExtractText(ctx context.Context, doc io.Reader, filename string) (string, error) {
	r.called = true
	return "remote", nil
}

func TestPlainText(t *testing.T) {
	next := &recordingExtractor{}
	p := PlainText{Next: next}

	got, err := p.ExtractText(context.Background(), strings.NewReader("  local notes \n"), "notes.TXT")
	require.NoError(t, err)
	assert.Equal(t, "local notes", got)
	assert.False(t, next.called)

	got, err = p.ExtractText(context.Background(), strings.NewReader("x"), "report.docx")
	require.NoError(t, err)
	assert.Equal(t, "remote", got)
	assert.True(t, next.called)

	_, err = p.ExtractText(context.Background(), strings.NewReader(""), "empty.txt")
	assert.ErrorIs(t, err, ErrNoText)

	_, err = PlainText{}.ExtractText(context.Background(), strings.NewReader("x"), "a.pdf")
	assert.Error(t, err)
}

func TestSupported(t *testing.T) {
	assert.True(t, Supported("a.PDF"))
	assert.True(t, Supported("b.docx"))
	assert.True(t, Supported("c.txt"))
	assert.False(t, Supported("d.xlsx"))
}
