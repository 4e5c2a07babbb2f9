// Package identity owns the login sessions and gates the remote identity operations
// behind an authenticated session.
package identity

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bryanwahyu/osint-cafe/internal/application"
	domain "github.com/bryanwahyu/osint-cafe/internal/domain/identity"
)

// DefaultSessionTTL caps a session whose token carries no expiry, or a longer one.
const DefaultSessionTTL = 24 * time.Hour

// sweepEvery is how often Login drops expired sessions.
const sweepEvery = time.Minute

// Manager is the only shared mutable identity state in the process. Callers always
// receive copies of sessions.
type Manager struct {
	mu        sync.RWMutex
	sessions  map[string]domain.Session
	lastSweep time.Time

	// SessionTTL bounds every session's lifetime. Zero means DefaultSessionTTL.
	SessionTTL time.Duration
	Verifier   domain.TokenVerifier
	Canister   domain.Canister
	Clock      application.Clock
	Logger     *zap.Logger
}

func NewManager(verifier domain.TokenVerifier, canister domain.Canister, clock application.Clock, logger *zap.Logger) *Manager {
	if clock == nil {
		clock = application.SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		sessions:  map[string]domain.Session{},
		lastSweep: clock.Now(),
		Verifier:  verifier,
		Canister:  canister,
		Clock:     clock,
		Logger:    logger,
	}
}

// Login verifies token and opens a session for its subject.
func (m *Manager) Login(ctx context.Context, token string) (domain.Session, error) {
	token = strings.TrimSpace(token)
	if m.Verifier == nil {
		return domain.Session{}, fmt.Errorf("%w: login is disabled", domain.ErrInvalidToken)
	}
	if token == "" {
		return domain.Session{}, fmt.Errorf("%w: empty token", domain.ErrInvalidToken)
	}
	claims, err := m.Verifier.Verify(ctx, token)
	if err != nil {
		m.Logger.Info("login rejected", zap.Error(err))
		return domain.Session{}, err
	}
	now := m.Clock.Now()
	s := domain.Session{
		ID:            uuid.NewString(),
		Authenticated: true,
		Principal:     claims.Subject,
		CreatedAt:     now.UTC(),
		ExpiresAt:     m.expiry(now, claims.Expiry),
	}
	m.mu.Lock()
	if now.Sub(m.lastSweep) >= sweepEvery {
		m.sweep(now)
	}
	m.sessions[s.ID] = s
	m.mu.Unlock()
	m.Logger.Info("session opened", zap.String("session_id", s.ID), zap.String("principal", s.Principal))
	return s, nil
}

func (m *Manager) expiry(now, tokenExpiry time.Time) time.Time {
	ttl := m.SessionTTL
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	limit := now.Add(ttl).UTC()
	if tokenExpiry.IsZero() || tokenExpiry.After(limit) {
		return limit
	}
	return tokenExpiry
}

// sweep must be called with m.mu held.
func (m *Manager) sweep(now time.Time) {
	dropped := 0
	for id, s := range m.sessions {
		if s.Expired(now) {
			delete(m.sessions, id)
			dropped++
		}
	}
	m.lastSweep = now
	if dropped > 0 {
		m.Logger.Debug("expired sessions dropped", zap.Int("count", dropped))
	}
}

// Logout destroys the session. It reports whether one existed.
func (m *Manager) Logout(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[id]
	delete(m.sessions, id)
	return ok
}

// Snapshot returns a copy of the session. Expired sessions come back unauthenticated.
func (m *Manager) Snapshot(id string) (domain.Session, bool) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return domain.Session{}, false
	}
	if s.TrustScore != nil {
		score := *s.TrustScore
		s.TrustScore = &score
	}
	if s.Expired(m.Clock.Now()) {
		s.Authenticated = false
	}
	return s, true
}

// SetTrustScore stores the latest verified trust score on the session.
func (m *Manager) SetTrustScore(id string, score int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return
	}
	s.TrustScore = &score
	m.sessions[id] = s
}

// Count returns the number of open sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Principal returns the authenticated principal or ErrUnauthenticated.
func (m *Manager) Principal(id string) (string, error) {
	s, ok := m.Snapshot(id)
	if !ok || !s.Authenticated || s.Principal == "" {
		return "", domain.ErrUnauthenticated
	}
	return s.Principal, nil
}

func (m *Manager) canister() (domain.Canister, error) {
	if m.Canister == nil {
		return nil, fmt.Errorf("identity canister not configured")
	}
	return m.Canister, nil
}

// WhoAmI returns the canister profile of the session's principal. A nil profile means
// the principal has not registered yet.
func (m *Manager) WhoAmI(ctx context.Context, id string) (*domain.UserProfile, error) {
	principal, err := m.Principal(id)
	if err != nil {
		return nil, err
	}
	c, err := m.canister()
	if err != nil {
		return nil, err
	}
	return c.WhoAmI(ctx, principal)
}

// UpdateTrustScore pushes a new score to the canister and mirrors it on the session.
func (m *Manager) UpdateTrustScore(ctx context.Context, id string, score int) (string, error) {
	principal, err := m.Principal(id)
	if err != nil {
		return "", err
	}
	if score < 0 || score > 100 {
		return "", fmt.Errorf("trust score %d out of range 0-100", score)
	}
	c, err := m.canister()
	if err != nil {
		return "", err
	}
	msg, err := c.UpdateTrustScore(ctx, principal, score)
	if err != nil {
		return "", err
	}
	m.SetTrustScore(id, score)
	return msg, nil
}

func (m *Manager) SetNickname(ctx context.Context, id, nickname string) (string, error) {
	principal, err := m.Principal(id)
	if err != nil {
		return "", err
	}
	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		return "", fmt.Errorf("nickname must not be empty")
	}
	c, err := m.canister()
	if err != nil {
		return "", err
	}
	return c.SetNickname(ctx, principal, nickname)
}

func (m *Manager) Stats(ctx context.Context, id string) (map[string]uint64, error) {
	principal, err := m.Principal(id)
	if err != nil {
		return nil, err
	}
	c, err := m.canister()
	if err != nil {
		return nil, err
	}
	return c.Stats(ctx, principal)
}
