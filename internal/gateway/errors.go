package gateway

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/bizmatters/deviation-service/internal/fault"
	"github.com/bizmatters/deviation-service/internal/models"
)

// errorResponse maps err to an HTTP status and response body.
func errorResponse(err error) (int, models.ErrorResponse) {
	f, ok := fault.As(err)
	if !ok {
		return http.StatusInternalServerError, models.ErrorResponse{
			Error: "Internal server error",
			Code:  models.ErrCodeInternalError,
		}
	}

	resp := models.ErrorResponse{Error: f.Error()}
	if len(f.Context) > 0 || len(f.Fields) > 0 {
		resp.Details = make(map[string]string, len(f.Context)+1)
		for _, k := range f.ContextKeys() {
			resp.Details[k] = f.Context[k]
		}
		if len(f.Fields) > 0 {
			resp.Details["fields"] = strings.Join(f.Fields, ",")
		}
	}

	switch f.Kind {
	case fault.InputFailure:
		resp.Code = models.ErrCodeInvalidRequest
		return http.StatusBadRequest, resp
	case fault.ValidationFailure:
		resp.Code = models.ErrCodeValidationFailed
		return http.StatusUnprocessableEntity, resp
	case fault.CollaboratorFailure:
		resp.Code = models.ErrCodeCollaboratorFailed
		return http.StatusBadGateway, resp
	case fault.ParseFailure:
		resp.Code = models.ErrCodeParseFailed
		return http.StatusBadGateway, resp
	}
	resp.Code = models.ErrCodeInternalError
	return http.StatusInternalServerError, resp
}

func (h *Handler) fail(c *gin.Context, err error) {
	status, resp := errorResponse(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Error(err))
	} else {
		h.logger.Info("request rejected",
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Error(err))
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, resp)
}

func badRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{
		Error: message,
		Code:  models.ErrCodeInvalidRequest,
	})
}
