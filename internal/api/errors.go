package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"recycle-fleet-backend/internal/apperr"
)

// writeError maps the service error taxonomy onto HTTP. Rate-limited
// responses carry retry_after seconds, failed PIN attempts carry
// remaining_attempts, and illegal ticket transitions come back as 422
// with an explicit reason.
func writeError(c *gin.Context, err error) {
	switch e := err.(type) {
	case *apperr.ValidationError:
		c.JSON(http.StatusBadRequest, gin.H{"error": e.Error()})
	case *apperr.AuthenticationError:
		body := gin.H{"error": e.Error()}
		if e.RemainingAttempts >= 0 {
			body["remaining_attempts"] = e.RemainingAttempts
		}
		c.JSON(http.StatusUnauthorized, body)
	case *apperr.AuthorizationError:
		c.JSON(http.StatusForbidden, gin.H{"error": e.Error()})
	case *apperr.NotFoundError:
		c.JSON(http.StatusNotFound, gin.H{"error": e.Error()})
	case *apperr.RateLimitedError:
		// Rounded up: a hint of 0 would invite an immediate retry that
		// is still going to be refused.
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":       e.Error(),
			"retry_after": int((e.RetryAfter + time.Second - 1) / time.Second),
		})
	case *apperr.StateTransitionError:
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": e.Error()})
	case *apperr.ConflictError:
		c.JSON(http.StatusConflict, gin.H{"error": e.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
