package orchestration

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bizmatters/deviation-service/internal/fault"
	"github.com/bizmatters/deviation-service/internal/ocr"
	"github.com/bizmatters/deviation-service/internal/transcribe"
)

// maxConcurrentFiles bounds collaborator calls issued for one request.
const maxConcurrentFiles = 4

// Upload is one caller-supplied file. Open may be called once.
type Upload struct {
	Filename string
	Open     func() (io.ReadCloser, error)
}

type gathered struct {
	transcripts []string
	documents   []string
	// byUpload holds each document's text in upload order, "" where a file
	// yielded none.
	byUpload []string
}

// gather checks every upload's type, then transcribes audio and extracts
// document text concurrently. Results keep upload order. Files that yield
// no text are skipped.
func (s *Service) gather(ctx context.Context, op string, audio, docs []Upload) (*gathered, error) {
	for _, u := range audio {
		if !transcribe.Supported(u.Filename) {
			return nil, fault.Input(op, "unsupported audio type %q; supported: %s",
				u.Filename, strings.Join(transcribe.Extensions, ", ")).With("filename", u.Filename)
		}
	}
	for _, u := range docs {
		if !ocr.Supported(u.Filename) {
			return nil, fault.Input(op, "unsupported document type %q; supported: %s",
				u.Filename, strings.Join(ocr.DocumentExtensions, ", ")).With("filename", u.Filename)
		}
	}
	if len(audio) > 0 && s.transcriber == nil {
		return nil, fault.Collaborator(op, errors.New("transcription is not configured"))
	}
	if len(docs) > 0 && s.extractor == nil {
		return nil, fault.Collaborator(op, errors.New("document extraction is not configured"))
	}

	out := &gathered{
		transcripts: make([]string, len(audio)),
		documents:   make([]string, len(docs)),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentFiles)
	for i, u := range audio {
		g.Go(func() error {
			text, err := s.readUpload(gctx, u, "transcription", func(ctx context.Context, r io.Reader) (string, error) {
				return s.transcriber.Transcribe(ctx, r, u.Filename)
			})
			if errors.Is(err, transcribe.ErrEmptyTranscript) {
				s.logger.Info("audio produced no transcript", zap.String("filename", u.Filename))
				return nil
			}
			if err != nil {
				return fault.Collaborator(op, err).With("filename", u.Filename)
			}
			out.transcripts[i] = text
			return nil
		})
	}
	for i, u := range docs {
		g.Go(func() error {
			text, err := s.readUpload(gctx, u, "ocr", func(ctx context.Context, r io.Reader) (string, error) {
				return s.extractor.ExtractText(ctx, r, u.Filename)
			})
			if errors.Is(err, ocr.ErrNoText) {
				s.logger.Info("document produced no text", zap.String("filename", u.Filename))
				return nil
			}
			if err != nil {
				return fault.Collaborator(op, err).With("filename", u.Filename)
			}
			out.documents[i] = text
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out.byUpload = append([]string(nil), out.documents...)
	out.transcripts = compact(out.transcripts)
	out.documents = compact(out.documents)
	return out, nil
}

func (s *Service) readUpload(ctx context.Context, u Upload, collaborator string, fn func(context.Context, io.Reader) (string, error)) (string, error) {
	rc, err := u.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", u.Filename, err)
	}
	defer rc.Close()

	start := time.Now()
	text, err := fn(ctx, rc)
	s.collaboratorCall(ctx, collaborator, time.Since(start), err)
	return text, err
}

func compact(texts []string) []string {
	out := texts[:0]
	for _, t := range texts {
		if strings.TrimSpace(t) != "" {
			out = append(out, t)
		}
	}
	return out
}

// Transcribe returns the transcript of each audio upload, in order. It is
// used for voice instructions and the standalone transcription endpoint.
func (s *Service) Transcribe(ctx context.Context, audio []Upload) ([]string, error) {
	texts, err := s.gather(ctx, "transcribe", audio, nil)
	if err != nil {
		return nil, err
	}
	return texts.transcripts, nil
}

// Directive is a modification instruction given as text or, when Text is
// blank, as a voice recording.
type Directive struct {
	Text  string
	Audio *Upload
}

func (d Directive) empty() bool {
	return strings.TrimSpace(d.Text) == "" && d.Audio == nil
}

// instruction resolves d, transcribing the recording when there is no text.
func (s *Service) instruction(ctx context.Context, op string, d Directive) (string, error) {
	if t := strings.TrimSpace(d.Text); t != "" {
		return t, nil
	}
	if d.Audio == nil {
		return "", fault.Input(op, "instruction is required")
	}
	transcripts, err := s.Transcribe(ctx, []Upload{*d.Audio})
	if err != nil {
		return "", err
	}
	if len(transcripts) == 0 {
		return "", fault.Input(op, "instruction audio produced no transcript").With("filename", d.Audio.Filename)
	}
	return transcripts[0], nil
}
