// Package session holds the client credentials shared by every operation.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/niksmo/shopfront/internal/core/domain"
	"github.com/niksmo/shopfront/internal/core/port"
)

// A Session keeps the validated client id in memory and the bearer token in
// memory and in a [port.TokenStore].
type Session struct {
	mu       sync.RWMutex
	store    port.TokenStore
	clientID string
	token    string
	username string
	now      func() time.Time
}

func New(store port.TokenStore) *Session {
	return &Session{store: store, now: time.Now}
}

// Restore loads the persisted token. A token whose exp claim has passed is
// dropped from the store.
func (s *Session) Restore(ctx context.Context) error {
	const op = "Session.Restore"
	log := slog.With("op", op)

	token, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if token == "" {
		return nil
	}

	c := readClaims(token)
	if c.expired(s.now()) {
		log.Info("persisted token is expired, discarding")
		if err := s.store.Clear(ctx); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		return nil
	}

	s.mu.Lock()
	s.token = token
	s.username = c.user
	s.mu.Unlock()

	log.Info("session restored", "user", c.user)
	return nil
}

func (s *Session) Snapshot() domain.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.Session{
		ClientID: s.clientID,
		Token:    s.token,
		Username: s.username,
	}
}

func (s *Session) ClientID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.clientID
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Session) SetClientID(clientID string) {
	s.mu.Lock()
	s.clientID = clientID
	s.mu.Unlock()
}

// SetToken keeps the token in memory and persists it. The in-memory token is
// set even when persisting fails.
func (s *Session) SetToken(ctx context.Context, token, username string) error {
	const op = "Session.SetToken"

	if u := readClaims(token).user; u != "" {
		username = u
	}

	s.mu.Lock()
	s.token = token
	s.username = username
	s.mu.Unlock()

	if err := s.store.Save(ctx, token); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Clear forgets both credentials and removes the persisted token.
func (s *Session) Clear(ctx context.Context) error {
	const op = "Session.Clear"

	s.mu.Lock()
	s.clientID = ""
	s.token = ""
	s.username = ""
	s.mu.Unlock()

	if err := s.store.Clear(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

type claims struct {
	user string
	exp  *jwt.NumericDate
}

func (c claims) expired(now time.Time) bool {
	return c.exp != nil && !now.Before(c.exp.Time)
}

// readClaims decodes the payload without verifying the signature. Opaque
// tokens yield zero claims.
func readClaims(token string) claims {
	mc := jwt.MapClaims{}
	_, _, err := jwt.NewParser().ParseUnverified(token, mc)
	if err != nil {
		return claims{}
	}

	var c claims
	if u, ok := mc["user"].(string); ok {
		c.user = u
	} else if sub, err := mc.GetSubject(); err == nil {
		c.user = sub
	}
	if exp, err := mc.GetExpirationTime(); err == nil {
		c.exp = exp
	}
	return c
}
