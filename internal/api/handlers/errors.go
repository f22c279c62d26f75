package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/depot-replenishment/internal/assistant"
	"github.com/andresuchdata/depot-replenishment/internal/domain"
)

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	var (
		validation *domain.ValidationError
		configErr  *domain.ConfigurationError
		tooLarge   *http.MaxBytesError
	)
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.As(err, &validation), errors.Is(err, assistant.ErrEmptyQuery):
		return http.StatusBadRequest
	case errors.As(err, &configErr):
		return http.StatusUnprocessableEntity
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, assistant.ErrDisabled):
		return http.StatusServiceUnavailable
	case errors.Is(err, assistant.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, assistant.ErrUnavailable):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	body := gin.H{"error": err.Error()}

	var validation *domain.ValidationError
	var configErr *domain.ConfigurationError
	switch {
	case errors.As(err, &validation):
		body["field"] = validation.Field
	case errors.As(err, &configErr):
		body["field"] = configErr.Field
	}

	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		if status == http.StatusInternalServerError {
			body["error"] = "internal server error"
		}
	}
	c.JSON(status, body)
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": message})
}
