// Package auth implements the two trust gates of the fleet: shared-secret
// authentication for edge controllers and rate-limited PIN verification
// for on-site technicians.
package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"recycle-fleet-backend/internal/apperr"
	"recycle-fleet-backend/internal/logs"
	"recycle-fleet-backend/internal/model"
	"recycle-fleet-backend/internal/store"
)

// DeviceGate validates an edge controller's shared secret and the
// operational status of its unit. Device secrets are long and
// machine-generated, so no rate limiting is applied here; that defense
// is reserved for the human-facing PIN surface.
type DeviceGate struct {
	store store.Store
}

// NewDeviceGate creates a gate over the given store.
func NewDeviceGate(s store.Store) *DeviceGate {
	return &DeviceGate{store: s}
}

// Authenticate resolves the presented secret to its unit. It has no
// side effects on failure.
//
//   - missing secret: AuthenticationError, no lookup performed
//   - unknown secret: AuthenticationError
//   - known secret, blocked or suspended unit: AuthorizationError
func (g *DeviceGate) Authenticate(ctx context.Context, secret string) (*model.Unit, error) {
	if secret == "" {
		return nil, &apperr.AuthenticationError{Reason: "missing device credential", RemainingAttempts: -1}
	}

	unit, err := g.store.UnitBySecret(ctx, secret)
	if errors.Is(err, store.ErrNotFound) {
		logs.Logger.WithField("outcome", "unknown_credential").Warn("device authentication failed")
		return nil, &apperr.AuthenticationError{Reason: "unknown device credential", RemainingAttempts: -1}
	}
	if err != nil {
		return nil, err
	}

	if !unit.Status.Operational() {
		logs.Logger.WithFields(map[string]any{
			"unit":    unit.ID,
			"status":  unit.Status,
			"outcome": "rejected",
		}).Warn("device credential valid but unit is not operational")
		return nil, &apperr.AuthorizationError{Reason: "unit is " + string(unit.Status)}
	}

	// Best effort; a failed touch must not fail the request.
	if err := g.store.TouchUnitLastSeen(ctx, unit.ID, time.Now().UTC()); err != nil {
		logs.Logger.WithField("unit", unit.ID).WithError(err).Debug("could not update last seen")
	}
	return unit, nil
}

// RotateSecret replaces a unit's shared secret with a fresh
// machine-generated one and returns it. The old secret stops working
// with the same write; in-flight requests that already passed the gate
// are unaffected.
func (g *DeviceGate) RotateSecret(ctx context.Context, unitID string) (string, error) {
	secret := uuid.NewString() + uuid.NewString()
	err := g.store.RotateUnitSecret(ctx, unitID, secret)
	if errors.Is(err, store.ErrNotFound) {
		return "", &apperr.NotFoundError{Resource: "unit", ID: unitID}
	}
	if err != nil {
		return "", err
	}
	logs.Logger.WithField("unit", unitID).Info("device secret rotated")
	return secret, nil
}
