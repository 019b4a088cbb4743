package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"favor-market/internal/auth"
	"favor-market/internal/services"
)

// respondServiceError translates service-layer failures into HTTP responses.
// Guard failures on the caller map to 403; every other guard is a plain 400.
func respondServiceError(c *gin.Context, err error) {
	var guard *services.PreconditionError
	switch {
	case errors.As(err, &guard):
		status := http.StatusBadRequest
		if guard.Guard == "caller" {
			status = http.StatusForbidden
		}
		c.JSON(status, gin.H{"error": guard.Message, "guard": guard.Guard})
	case services.IsInsufficientValue(err):
		c.JSON(http.StatusPaymentRequired, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case services.IsInvariant(err):
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// principal pulls the authenticated wallet address out of the request context.
func principal(c *gin.Context) (string, bool) {
	address, ok := auth.GetPrincipal(c)
	if !ok || address == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return "", false
	}
	return address, true
}
