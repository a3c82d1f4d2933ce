package api

import (
	"github.com/SherClockHolmes/webpush-go"

	"recycle-fleet-backend/internal/auth"
	"recycle-fleet-backend/internal/offline"
	"recycle-fleet-backend/internal/store"
	"recycle-fleet-backend/internal/ticket"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store   store.Store
	gate    *auth.DeviceGate
	pins    *auth.PinAuthenticator
	sync    *offline.Reconciler
	tickets *ticket.Service
	webpush *webpush.Options
}

// NewHandler creates a new API handler.
func NewHandler(s store.Store, gate *auth.DeviceGate, pins *auth.PinAuthenticator, sync *offline.Reconciler, tickets *ticket.Service, webpushOptions *webpush.Options) *Handler {
	return &Handler{
		store:   s,
		gate:    gate,
		pins:    pins,
		sync:    sync,
		tickets: tickets,
		webpush: webpushOptions,
	}
}
