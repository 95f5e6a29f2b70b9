// Package httpx maps application errors onto HTTP responses so every handler
// reports failures the same way.
package httpx

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/thevault-app/thevault/internal/apperr"
)

// Status returns the HTTP status for an error code.
func Status(code apperr.Code) int {
	switch code {
	case apperr.CodeInvalidArgument:
		return http.StatusBadRequest
	case apperr.CodeNotFound:
		return http.StatusNotFound
	case apperr.CodeAlreadyExists:
		return http.StatusConflict
	case apperr.CodePermissionDenied:
		return http.StatusForbidden
	case apperr.CodeFailedPrecondition:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// Error writes the JSON error body for err. Internal causes are never leaked
// to the client; only the AppError code and message go out.
func Error(c *gin.Context, err error) {
	var ae *apperr.AppError
	if !errors.As(err, &ae) {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    apperr.CodeInternal,
			"message": "internal error",
		})
		return
	}
	c.JSON(Status(ae.Code), gin.H{"code": ae.Code, "message": ae.Message})
}
