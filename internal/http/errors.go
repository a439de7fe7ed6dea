package http

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/kitaplik/internal/apperror"
)

const msgUnknownError = "An unknown error occurred"

// statusFor maps an error class to its HTTP status.
func statusFor(kind apperror.Kind) int {
	switch kind {
	case apperror.KindValidation:
		return http.StatusBadRequest
	case apperror.KindUnauthenticated, apperror.KindTokenExpired:
		return http.StatusUnauthorized
	case apperror.KindForbidden:
		return http.StatusForbidden
	case apperror.KindNotFound:
		return http.StatusNotFound
	case apperror.KindConflict:
		return http.StatusConflict
	case apperror.KindUnavailable:
		return http.StatusServiceUnavailable
	case apperror.KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// respondError is the single place service errors become responses.
// Internal and unclassified errors are logged and answered with a generic message.
func respondError(c *gin.Context, err error) {
	kind := apperror.KindOf(err)
	status := statusFor(kind)

	message := apperror.MessageOf(err)
	if kind == apperror.KindInternal || message == "" {
		log.Printf("[HTTP] %s %s failed (request %s): %v", c.Request.Method, c.FullPath(), requestID(c), err)
		message = msgUnknownError
	} else if kind == apperror.KindUnavailable {
		log.Printf("[HTTP] %s %s upstream failure: %v", c.Request.Method, c.FullPath(), err)
	}

	_ = c.Error(err)
	c.AbortWithStatusJSON(status, ErrorResponse{Error: message, Code: kind.String()})
}
