package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"eduplatform/internal/middleware"
	"eduplatform/internal/response"
	"eduplatform/internal/service"
)

func statusOf(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrUnauthorized),
		errors.Is(err, service.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrAccountInactive):
		return http.StatusForbidden
	case errors.Is(err, service.ErrActionUnavailable):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func respondError(c *gin.Context, log zerolog.Logger, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("request_id", middleware.RequestIDFrom(c)).Msg("request failed")
	}
	_ = c.Error(err)
	response.Fail(c, status, service.KindOf(err), service.MessageOf(err))
}

func respondBindError(c *gin.Context, err error) {
	response.Fail(c, http.StatusBadRequest, "INVALID_INPUT", err.Error())
}
