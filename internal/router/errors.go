package router

import (
	"net/http"

	"github.com/HelixDevelopment/nldbexplorer/internal/contracts"
	"github.com/gin-gonic/gin"
)

// statusForError maps an ErrorKind to the HTTP status codes this surface
// promises: 400 validation, 401 auth, 404 not found, 409 duplicate, 503
// upstream unavailable, 500 otherwise. No ErrorKind maps to 403, and no
// handler makes a role check (ValidateAccess), so no route returns 403.
func statusForError(kind contracts.ErrorKind) int {
	switch kind {
	case contracts.ErrValidation, contracts.ErrNoActiveConnection, contracts.ErrBlocked:
		return http.StatusBadRequest
	case contracts.ErrInvalidCredentials, contracts.ErrLocked, contracts.ErrInactive,
		contracts.ErrSessionNotFound, contracts.ErrSessionExpired, contracts.ErrSessionRevoked:
		return http.StatusUnauthorized
	case contracts.ErrNotFound:
		return http.StatusNotFound
	case contracts.ErrDuplicate:
		return http.StatusConflict
	case contracts.ErrUnreachable, contracts.ErrUpstreamUnavail, contracts.ErrTimeout:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err as this surface's single error shape, mapping
// its Kind to a status code and never leaking Detail to the response body.
func respondError(c *gin.Context, err error) {
	ce := contracts.AsError(err)
	c.JSON(statusForError(ce.Kind), gin.H{
		"error": gin.H{
			"kind":    ce.Kind,
			"message": ce.Message,
		},
	})
}
