// Package token issues the two short-lived opaque tokens of the kiosk
// surface: pairing tokens (a few minutes, awaiting a companion action)
// and anonymous guest sessions (about an hour, lower trust tier).
// Both are stateless beyond their TTL and live in the shared cache.
package token

import (
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// Kind distinguishes the token flows.
type Kind string

const (
	KindPairing Kind = "pairing"
	KindGuest   Kind = "guest"
)

// Pairing token statuses.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
)

// Session is the value a token resolves to.
type Session struct {
	Token     string    `json:"token"`
	UnitID    string    `json:"unitId"`
	Kind      Kind      `json:"kind"`
	Status    string    `json:"status"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Store holds live tokens. Safe for concurrent use.
type Store struct {
	c *cache.Cache
}

// NewStore creates an empty token store.
func NewStore() *Store {
	return &Store{c: cache.New(5*time.Minute, 10*time.Minute)}
}

// Issue creates an opaque token for unitID and returns the session.
// Pairing tokens start in the pending status; guest sessions start
// confirmed since no companion action is required.
func (s *Store) Issue(unitID string, kind Kind, ttl time.Duration) Session {
	status := StatusConfirmed
	if kind == KindPairing {
		status = StatusPending
	}
	sess := Session{
		Token:     uuid.NewString(),
		UnitID:    unitID,
		Kind:      kind,
		Status:    status,
		ExpiresAt: time.Now().Add(ttl),
	}
	s.c.Set(sess.Token, sess, ttl)
	return sess
}

// Resolve returns the live session for tok, if any. Expired tokens are
// indistinguishable from unknown ones.
func (s *Store) Resolve(tok string) (Session, bool) {
	v, found := s.c.Get(tok)
	if !found {
		return Session{}, false
	}
	return v.(Session), true
}

// Confirm marks a pending pairing token as confirmed, keeping its
// original expiry. It reports whether the token was live.
func (s *Store) Confirm(tok string) bool {
	v, expiry, found := s.c.GetWithExpiration(tok)
	if !found {
		return false
	}
	sess := v.(Session)
	sess.Status = StatusConfirmed
	s.c.Set(tok, sess, time.Until(expiry))
	return true
}

// Revoke drops a token before its TTL elapses.
func (s *Store) Revoke(tok string) {
	s.c.Delete(tok)
}
