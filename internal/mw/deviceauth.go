package mw

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"recycle-fleet-backend/internal/apperr"
	"recycle-fleet-backend/internal/auth"
	"recycle-fleet-backend/internal/model"
)

// unitContextKey is where the authenticated unit is stored in the gin
// context.
const unitContextKey = "authenticated_unit"

// DeviceAuth authenticates every edge-originated request through the
// device gate. 401 for a missing or unknown credential, 403 for a valid
// credential whose unit is blocked or suspended.
func DeviceAuth(gate *auth.DeviceGate) gin.HandlerFunc {
	return func(c *gin.Context) {
		unit, err := gate.Authenticate(c.Request.Context(), c.GetHeader("X-Device-Secret"))
		if err != nil {
			switch err.(type) {
			case *apperr.AuthenticationError:
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid device credential"})
			case *apperr.AuthorizationError:
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": err.Error()})
			default:
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "authentication unavailable"})
			}
			return
		}
		c.Set(unitContextKey, unit)
		c.Next()
	}
}

// UnitFromContext returns the unit placed by DeviceAuth.
func UnitFromContext(c *gin.Context) (*model.Unit, bool) {
	v, ok := c.Get(unitContextKey)
	if !ok {
		return nil, false
	}
	unit, ok := v.(*model.Unit)
	return unit, ok
}
