package util

import (
	"credlyse_backend/pkg/logger"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RetryAfterSeconds is the cooldown advertised to rate-limited clients.
const RetryAfterSeconds = 60

type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    http.StatusOK,
		Message: "success",
		Data:    data,
	})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code:    http.StatusCreated,
		Message: "created",
		Data:    data,
	})
}

func Error(c *gin.Context, code int, message string) {
	c.JSON(code, Response{
		Code:    code,
		Message: message,
	})
}

func Unauthorized(c *gin.Context) {
	Error(c, http.StatusUnauthorized, "Unauthorized")
}

func Forbidden(c *gin.Context) {
	Error(c, http.StatusForbidden, "Forbidden")
}

func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message)
}

func NotFound(c *gin.Context) {
	Error(c, http.StatusNotFound, "Resource not found")
}

func TooManyRequests(c *gin.Context) {
	c.Header("Retry-After", strconv.Itoa(RetryAfterSeconds))
	Error(c, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
}

func InternalServerError(c *gin.Context) {
	Error(c, http.StatusInternalServerError, "Internal server error")
}

func LogInternalError(c *gin.Context, err error) {
	logger.Log.Error("Internal server error",
		zap.String("path", c.Request.URL.Path),
		zap.Error(err))
	InternalServerError(c)
}

// HandleError writes the response for a service error.
func HandleError(c *gin.Context, err error) {
	var elig *EligibilityError
	switch {
	case errors.As(err, &elig):
		c.JSON(http.StatusBadRequest, Response{
			Code:    http.StatusBadRequest,
			Message: "Not eligible for certificate yet",
			Data:    gin.H{"missing_requirements": elig.Missing},
		})
	case errors.Is(err, ErrNotFound):
		Error(c, http.StatusNotFound, PublicMessage(err))
	case errors.Is(err, ErrBadRequest), errors.Is(err, ErrPreconditionFailed):
		BadRequest(c, PublicMessage(err))
	case errors.Is(err, ErrUnauthorized):
		Error(c, http.StatusUnauthorized, PublicMessage(err))
	case errors.Is(err, ErrConflict):
		Error(c, http.StatusConflict, PublicMessage(err))
	case errors.Is(err, ErrPermissionDenied):
		Error(c, http.StatusForbidden, PublicMessage(err))
	case errors.Is(err, ErrRateLimited):
		TooManyRequests(c)
	case errors.Is(err, ErrUpstream):
		logger.Log.Warn("Upstream failure", zap.String("path", c.Request.URL.Path), zap.Error(err))
		Error(c, http.StatusBadGateway, "Upstream service unavailable")
	default:
		LogInternalError(c, err)
	}
}
