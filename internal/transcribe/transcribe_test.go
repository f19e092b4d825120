package transcribe

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSupported(t *testing.T) {
	tests := []struct {
		filename string
		want     bool
	}{
		{"meeting.mp3", true},
		{"MEETING.WAV", true},
		{"voice.m4a", true},
		{"clip.mp4", true},
		{"notes.txt", false},
		{"noext", false},
	}
	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			assert.Equal(t, tt.want, Supported(tt.filename))
		})
	}
}

func TestWhisper_Transcribe(t *testing.T) {
	tests := []struct {
		name           string
		serverResponse func(w http.ResponseWriter, r *http.Request)
		expectedError  string
		expectedResult string
	}{
		{
			name: "successful_transcription",
			serverResponse: func(w http.ResponseWriter, r *http.Request) {
				assert.True(t, strings.HasSuffix(r.URL.Path, "/audio/transcriptions"))
				require.NoError(t, r.ParseMultipartForm(1<<20))
				assert.Equal(t, "whisper-1", r.FormValue("model"))
				f, hdr, err := r.FormFile("file")
				require.NoError(t, err)
				defer f.Close()
				assert.Equal(t, "meeting.mp3", hdr.Filename)
				data, _ := io.ReadAll(f)
				assert.Equal(t, "audio-bytes", string(data))

				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(`{"text": " Line 3 stopped at ten. "}`))
			},
			expectedResult: "Line 3 stopped at ten.",
		},
		{
			name: "empty_transcript",
			serverResponse: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(`{"text": ""}`))
			},
			expectedError: ErrEmptyTranscript.Error(),
		},
		{
			name: "server_error",
			serverResponse: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error": {"message": "bad key"}}`))
			},
			expectedError: "failed to transcribe /tmp/upload/meeting.mp3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(tt.serverResponse))
			defer server.Close()

			w, err := NewWhisper("test-key", server.URL+"/", "", time.Minute, zap.NewNop())
			require.NoError(t, err)

			got, err := w.Transcribe(context.Background(), strings.NewReader("audio-bytes"), "/tmp/upload/meeting.mp3")
			if tt.expectedError != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectedResult, got)
		})
	}
}
