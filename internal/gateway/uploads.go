package gateway

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/bizmatters/deviation-service/internal/fault"
	"github.com/bizmatters/deviation-service/internal/models"
	"github.com/bizmatters/deviation-service/internal/orchestration"
)

// spool holds one request's multipart uploads as temp files. Close removes
// them; every handler that opens a spool defers Close.
type spool struct {
	dir   string
	form  *multipart.Form
	files map[string][]orchestration.Upload
}

// openSpool parses the multipart body, enforcing the upload size limit, and
// writes each file part to a per-request directory.
func (h *Handler) openSpool(c *gin.Context) (*spool, bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.cfg.MaxUploadBytes)

	form, err := c.MultipartForm()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, models.ErrorResponse{
				Error: fmt.Sprintf("request body exceeds %d bytes", h.cfg.MaxUploadBytes),
				Code:  models.ErrCodePayloadTooLarge,
			})
			return nil, false
		}
		badRequest(c, "Invalid multipart form: "+err.Error())
		return nil, false
	}

	dir, err := os.MkdirTemp(h.cfg.UploadDir, "deviation-"+requestID(c)+"-")
	if err != nil {
		_ = form.RemoveAll()
		h.fail(c, fmt.Errorf("failed to create upload directory: %w", err))
		return nil, false
	}

	s := &spool{dir: dir, form: form, files: make(map[string][]orchestration.Upload)}
	n := 0
	for field, headers := range form.File {
		for _, fh := range headers {
			name := filepath.Base(fh.Filename)
			if name == "." || name == string(filepath.Separator) {
				s.Close(h.logger)
				h.fail(c, fault.Input("upload", "file in field %q has no name", field))
				return nil, false
			}
			n++
			dst := filepath.Join(dir, fmt.Sprintf("%03d-%s", n, name))
			if err := c.SaveUploadedFile(fh, dst); err != nil {
				s.Close(h.logger)
				h.fail(c, fmt.Errorf("failed to save upload %q: %w", name, err))
				return nil, false
			}
			s.files[field] = append(s.files[field], orchestration.Upload{
				Filename: name,
				Open:     openFile(dst),
			})
		}
	}
	return s, true
}

func openFile(path string) func() (io.ReadCloser, error) {
	return func() (io.ReadCloser, error) { return os.Open(path) }
}

// Uploads returns the files sent under any of the given field names, in
// field order.
func (s *spool) Uploads(fields ...string) []orchestration.Upload {
	var out []orchestration.Upload
	for _, f := range fields {
		out = append(out, s.files[f]...)
	}
	return out
}

// Upload returns the first file sent under field, or nil.
func (s *spool) Upload(field string) *orchestration.Upload {
	if files := s.files[field]; len(files) > 0 {
		return &files[0]
	}
	return nil
}

// Value returns the trimmed form value for field.
func (s *spool) Value(field string) string {
	if vs := s.form.Value[field]; len(vs) > 0 {
		return strings.TrimSpace(vs[0])
	}
	return ""
}

func (s *spool) Close(logger *zap.Logger) {
	if err := os.RemoveAll(s.dir); err != nil {
		logger.Warn("failed to remove upload directory", zap.String("dir", s.dir), zap.Error(err))
	}
	if err := s.form.RemoveAll(); err != nil {
		logger.Warn("failed to remove multipart temp files", zap.Error(err))
	}
}
