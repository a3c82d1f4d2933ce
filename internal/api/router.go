package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"recycle-fleet-backend/internal/auth"
	"recycle-fleet-backend/internal/mw"
)

// RouterConfig carries the router-level knobs.
type RouterConfig struct {
	RateLimitPerSec float64
	RateLimitBurst  int
}

// NewRouter creates and configures a new Gin router. Edge-originated
// routes pass the device gate; the kiosk/staff surface only gets the
// IP throttle, since its real defense is the per-unit PIN counter.
func NewRouter(h *Handler, gate *auth.DeviceGate, cfg RouterConfig) *gin.Engine {
	r := gin.Default()

	r.GET("/api/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	throttle := mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst)

	// Edge controller surface (device secret required).
	edge := r.Group("/api/sync")
	edge.Use(mw.DeviceAuth(gate))
	{
		edge.POST("/batches", h.IngestBatch)
		edge.GET("/batches/:batch_id", h.BatchStatus)
	}

	// Kiosk and staff surface.
	api := r.Group("/api")
	api.Use(throttle)
	{
		api.POST("/units/:unit_id/pin", h.VerifyPIN)
		api.POST("/units/:unit_id/pairing-token", h.IssuePairingToken)
		api.GET("/pairing-token/:token", h.ResolvePairingToken)
		api.POST("/units/:unit_id/guest-session", h.StartGuestSession)
		api.POST("/units/:unit_id/rotate-secret", h.RotateUnitSecret)
		api.POST("/assignments/:id/pin-reset", h.ResetAssignmentPIN)

		api.POST("/tickets", h.CreateTicket)
		api.GET("/tickets/:number", h.GetTicket)
		api.POST("/tickets/:number/assign", h.AssignTicket)
		api.POST("/tickets/:number/start", h.StartTicket)
		api.POST("/tickets/:number/resolve", h.ResolveTicket)
		api.POST("/tickets/:number/close", h.CloseTicket)
		api.POST("/tickets/:number/retire", h.RetireTicket)
		api.GET("/units/:unit_id/tickets", h.ListUnitTickets)

		api.GET("/subscriptions", h.GetSubscription)
		api.PUT("/subscriptions", h.PutSubscription)
		api.DELETE("/subscriptions", h.DeleteSubscription)
		api.GET("/vapid_public_key", h.GetVAPIDPublicKey)
	}

	return r
}
