package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/threaded-comments-api/internal/service"
)

// respondError writes err as a JSON error response. Domain errors keep their
// message; anything else is logged and hidden behind a 500.
func respondError(c *gin.Context, log zerolog.Logger, err error) {
	var domainErr *service.Error
	if errors.As(err, &domainErr) {
		body := gin.H{"error": domainErr.Message}
		if domainErr.Details != nil {
			body["details"] = domainErr.Details
		}
		c.JSON(statusFor(domainErr.Kind), body)
		return
	}

	log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Request failed")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
}

func statusFor(kind error) int {
	switch {
	case errors.Is(kind, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(kind, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(kind, service.ErrConflict):
		return http.StatusConflict
	case errors.Is(kind, service.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(kind, service.ErrUnauthorized):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
