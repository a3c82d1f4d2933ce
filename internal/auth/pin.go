package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"golang.org/x/crypto/bcrypt"

	"recycle-fleet-backend/config"
	"recycle-fleet-backend/internal/apperr"
	"recycle-fleet-backend/internal/logs"
	"recycle-fleet-backend/internal/model"
	"recycle-fleet-backend/internal/ratelimit"
	"recycle-fleet-backend/internal/store"
	"recycle-fleet-backend/internal/token"
)

// Capabilities granted to every authenticated technician.
var baseCapabilities = []string{
	"view_status",
	"view_logs",
	"self_test",
	"display_theme",
}

// Additional capabilities granted only to elevated-tier assignments.
var elevatedCapabilities = []string{
	"remote_reboot",
	"config_write",
}

// Grant is the result of a successful PIN verification.
type Grant struct {
	TechnicianID string
	Tier         model.AssignmentTier
	Capabilities []string
	ExpiresIn    time.Duration
}

// PinAuthenticator verifies technician PINs under brute-force defenses
// and issues the short-lived pairing and guest tokens.
type PinAuthenticator struct {
	store   store.Store
	limiter ratelimit.Limiter
	tokens  *token.Store
	cfg     config.AuthConfig
}

// NewPinAuthenticator wires the authenticator.
func NewPinAuthenticator(s store.Store, l ratelimit.Limiter, t *token.Store, cfg config.AuthConfig) *PinAuthenticator {
	return &PinAuthenticator{store: s, limiter: l, tokens: t, cfg: cfg}
}

// ValidPINSyntax reports whether pin is exactly six ASCII digits.
// Malformed PINs are rejected before any lookup and never charge a
// rate-limit slot.
func ValidPINSyntax(pin string) bool {
	if len(pin) != 6 {
		return false
	}
	for _, r := range pin {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// HashPIN produces the stored bcrypt hash for a PIN. Used by the
// provisioning surface when an assignment's PIN is (re)generated.
func HashPIN(pin string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// GeneratePIN draws a uniformly random six-digit PIN.
func GeneratePIN() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// ResetPIN regenerates the PIN of an assignment. Only the hash is
// persisted; the plaintext is returned once so the provisioning client
// can show it to the technician, and is never logged.
func (a *PinAuthenticator) ResetPIN(ctx context.Context, assignmentID int64) (string, time.Time, error) {
	pin, err := GeneratePIN()
	if err != nil {
		return "", time.Time{}, err
	}
	hash, err := HashPIN(pin)
	if err != nil {
		return "", time.Time{}, err
	}

	expiresAt := time.Now().UTC().Add(a.cfg.PinValidity)
	err = a.store.ResetAssignmentPIN(ctx, assignmentID, hash, expiresAt)
	if errors.Is(err, store.ErrNotFound) {
		return "", time.Time{}, &apperr.NotFoundError{Resource: "assignment", ID: fmt.Sprint(assignmentID)}
	}
	if err != nil {
		return "", time.Time{}, err
	}

	logs.Logger.WithField("assignment", assignmentID).Info("assignment PIN reset")
	return pin, expiresAt, nil
}

// VerifyPIN checks a presented PIN against the active assignments of a
// unit. An attempt against an unknown unit still consumes a rate-limit
// slot, so probing for valid unit identifiers gains nothing over
// probing a real one.
func (a *PinAuthenticator) VerifyPIN(ctx context.Context, unitID, pin string) (*Grant, error) {
	if !ValidPINSyntax(pin) {
		return nil, &apperr.ValidationError{Field: "pin", Reason: "must be exactly 6 digits"}
	}

	key := "pin:" + unitID
	if a.limiter.Attempts(key) >= a.cfg.MaxPinAttempts {
		retryAfter := a.limiter.AvailableIn(key)
		logs.Logger.WithFields(map[string]any{
			"unit":    unitID,
			"outcome": "rate_limited",
		}).Warn("PIN verification locked out")
		return nil, &apperr.RateLimitedError{RetryAfter: retryAfter}
	}

	unit, err := a.store.UnitByID(ctx, unitID)
	if errors.Is(err, store.ErrNotFound) {
		a.limiter.Hit(key)
		return nil, &apperr.NotFoundError{Resource: "unit", ID: unitID}
	}
	if err != nil {
		return nil, err
	}

	assignments, err := a.store.ActiveAssignments(ctx, unit.ID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	matched := a.matchAssignment(assignments, pin, now)
	if matched == nil {
		attempts := a.limiter.Hit(key)
		remaining := a.cfg.MaxPinAttempts - attempts
		if remaining < 0 {
			remaining = 0
		}
		logs.Logger.WithFields(map[string]any{
			"unit":    unitID,
			"outcome": "wrong_pin",
		}).Info("PIN verification failed")
		return nil, &apperr.AuthenticationError{Reason: "wrong PIN", RemainingAttempts: remaining}
	}

	a.limiter.Clear(key)
	if err := a.store.TouchAssignmentAccess(ctx, matched.ID, now); err != nil {
		logs.Logger.WithField("assignment", matched.ID).WithError(err).Debug("could not record last access")
	}

	logs.Logger.WithFields(map[string]any{
		"unit":       unitID,
		"technician": matched.TechnicianID,
		"tier":       matched.Tier,
		"outcome":    "success",
	}).Info("PIN verified")

	return &Grant{
		TechnicianID: matched.TechnicianID,
		Tier:         matched.Tier,
		Capabilities: capabilitiesFor(matched.Tier),
		ExpiresIn:    a.cfg.PinValidity,
	}, nil
}

// matchAssignment scans every active assignment even after a match is
// found, keeping the work per attempt independent of where (or whether)
// the PIN matches. An expired match is treated as a non-match.
func (a *PinAuthenticator) matchAssignment(assignments []model.MachineAssignment, pin string, now time.Time) *model.MachineAssignment {
	var matched *model.MachineAssignment
	for i := range assignments {
		as := &assignments[i]
		if bcrypt.CompareHashAndPassword([]byte(as.PINHash), []byte(pin)) != nil {
			continue
		}
		if now.After(as.PINExpiresAt) {
			continue
		}
		if matched == nil {
			matched = as
		}
	}
	return matched
}

func capabilitiesFor(tier model.AssignmentTier) []string {
	caps := make([]string, 0, len(baseCapabilities)+len(elevatedCapabilities))
	caps = append(caps, baseCapabilities...)
	if tier == model.TierElevated {
		caps = append(caps, elevatedCapabilities...)
	}
	return caps
}

// IssuePairingToken creates an opaque pairing token for a unit. The
// token maps to a pending status until the companion action confirms it.
func (a *PinAuthenticator) IssuePairingToken(ctx context.Context, unitID string) (token.Session, error) {
	if _, err := a.store.UnitByID(ctx, unitID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return token.Session{}, &apperr.NotFoundError{Resource: "unit", ID: unitID}
		}
		return token.Session{}, err
	}
	return a.tokens.Issue(unitID, token.KindPairing, a.cfg.PairingTokenTTL), nil
}

// ResolvePairingToken returns the live session behind a pairing token.
func (a *PinAuthenticator) ResolvePairingToken(tok string) (token.Session, error) {
	sess, ok := a.tokens.Resolve(tok)
	if !ok || sess.Kind != token.KindPairing {
		return token.Session{}, &apperr.NotFoundError{Resource: "pairing token", ID: tok}
	}
	return sess, nil
}

// StartGuestSession creates an anonymous donation session for a unit.
// No PIN is required; the session carries the lowest trust tier.
func (a *PinAuthenticator) StartGuestSession(ctx context.Context, unitID string) (token.Session, error) {
	if _, err := a.store.UnitByID(ctx, unitID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return token.Session{}, &apperr.NotFoundError{Resource: "unit", ID: unitID}
		}
		return token.Session{}, err
	}
	return a.tokens.Issue(unitID, token.KindGuest, a.cfg.GuestSessionTTL), nil
}
