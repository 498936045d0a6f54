package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/spigell/applyflow/internal/ai"
	"github.com/spigell/applyflow/internal/api/middleware"
	"github.com/spigell/applyflow/internal/credentials"
	"github.com/spigell/applyflow/internal/pipeline"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error     string `json:"error"`
	Stage     string `json:"stage,omitempty"`
	Retryable bool   `json:"retryable"`
}

func Error(c *gin.Context, status int, msg string) {
	c.JSON(status, ErrorResponse{Error: msg})
}

func BadRequest(c *gin.Context, msg string) { Error(c, http.StatusBadRequest, msg) }
func NotFound(c *gin.Context, msg string)   { Error(c, http.StatusNotFound, msg) }
func Conflict(c *gin.Context, msg string)   { Error(c, http.StatusConflict, msg) }
func Internal(c *gin.Context, msg string)   { Error(c, http.StatusInternalServerError, msg) }

// statusFor maps a pipeline error to an HTTP status and a client-safe message.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, pipeline.ErrConfiguration):
		return http.StatusPreconditionFailed, credentials.ErrNotConfigured.Error()
	case errors.Is(err, pipeline.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, pipeline.ErrInvalidInput), errors.Is(err, credentials.ErrInvalidSettings):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, ai.ErrCredential):
		return http.StatusFailedDependency, "the recruiter's AI credential was rejected"
	case errors.Is(err, ai.ErrTransient):
		return http.StatusServiceUnavailable, "AI backend is temporarily unavailable"
	case errors.Is(err, pipeline.ErrStorageUnavailable):
		return http.StatusServiceUnavailable, "file storage is temporarily unavailable"
	case errors.Is(err, pipeline.ErrExtractionFailed),
		errors.Is(err, pipeline.ErrScoringFailed),
		errors.Is(err, pipeline.ErrGenerationFailed),
		errors.Is(err, ai.ErrMalformedOutput):
		return http.StatusBadGateway, err.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "request timed out"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

// respondError writes err as an ErrorResponse and logs it on the request logger.
func respondError(c *gin.Context, err error) {
	status, msg := statusFor(err)

	resp := ErrorResponse{Error: msg, Retryable: pipeline.Retryable(err)}
	var stageErr *pipeline.StageError
	if errors.As(err, &stageErr) {
		resp.Stage = string(stageErr.Stage)
	}

	log := middleware.LoggerFromContext(c)
	if status >= http.StatusInternalServerError {
		log.Error("request failed", zap.Int("status", status), zap.String("outcome", pipeline.Outcome(err)), zap.Error(err))
	} else {
		log.Warn("request rejected", zap.Int("status", status), zap.String("outcome", pipeline.Outcome(err)), zap.Error(err))
	}

	_ = c.Error(err)
	c.JSON(status, resp)
}
