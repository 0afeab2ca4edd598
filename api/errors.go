package api

import (
	"errors"
	"net/http"

	"github.com/Domenick1991/garagebooking/internal/domain"
	"github.com/gin-gonic/gin"
)

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidationFailed), errors.Is(err, domain.ErrInvalidAmount):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrPersistenceFailed), errors.Is(err, domain.ErrNotConfigured):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrLookupFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps a service error onto its HTTP status. Storage and
// unexpected errors are not echoed to the client.
func writeError(c *gin.Context, err error) {
	_ = c.Error(err)
	status := statusFor(err)
	resp := errorResponse{Error: err.Error()}

	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		resp = errorResponse{Error: domain.ErrValidationFailed.Error(), Fields: verr.Fields}
	}
	switch status {
	case http.StatusInternalServerError:
		resp.Error = "internal error"
	case http.StatusServiceUnavailable:
		if errors.Is(err, domain.ErrPersistenceFailed) {
			resp.Error = "booking storage is unavailable, please try again"
		}
	}
	c.AbortWithStatusJSON(status, resp)
}

func badRequest(c *gin.Context, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
}
