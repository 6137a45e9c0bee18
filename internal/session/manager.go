package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"memberzone/internal/model"
)

// Manager creates, checks, destroys and updates sessions.
type Manager struct {
	store  Store
	ttl    time.Duration
	now    func() time.Time
	logger *zap.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithTTL sets the session lifetime. Non-positive values keep DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// NewManager returns a Manager over store.
func NewManager(store Store, opts ...Option) *Manager {
	m := &Manager{
		store:  store,
		ttl:    DefaultTTL,
		now:    time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// TTL returns the configured session lifetime.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Load returns the session with the given id. Unknown, empty and expired ids
// yield a fresh anonymous session; expired records are removed.
func (m *Manager) Load(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return &Session{}, nil
	}
	sess, err := m.store.Load(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if sess == nil {
		return &Session{}, nil
	}
	if !m.now().Before(sess.ExpiresAt) {
		if err := m.store.Delete(ctx, sess); err != nil {
			return nil, fmt.Errorf("evict expired session: %w", err)
		}
		return &Session{}, nil
	}
	return sess, nil
}

// Create turns sess into an authenticated session for user. Any prior state
// of sess is discarded and a new id is issued, so an id seen before login is
// never valid after it.
func (m *Manager) Create(ctx context.Context, sess *Session, user *model.User) error {
	if sess == nil || user == nil {
		return fmt.Errorf("create session: nil session or user")
	}
	if sess.ID != "" {
		if err := m.store.Delete(ctx, sess); err != nil {
			return fmt.Errorf("discard previous session: %w", err)
		}
	}

	id, err := generateID()
	if err != nil {
		return err
	}
	*sess = Session{
		ID:            id,
		Authenticated: true,
		UserID:        user.ID,
		Username:      user.Username,
		Email:         user.Email,
		Role:          user.Role,
	}
	if err := m.save(ctx, sess); err != nil {
		return err
	}

	m.logger.Debug("session created",
		zap.String("user_id", user.ID.String()),
		zap.String("role", string(user.Role)),
		zap.Time("expires_at", sess.ExpiresAt),
	)
	return nil
}

// IsAuthenticated reports whether sess is authenticated and not yet expired.
// An expired session is unauthenticated even if its flag is still set.
func (m *Manager) IsAuthenticated(sess *Session) bool {
	if sess == nil || !sess.Authenticated {
		return false
	}
	return m.now().Before(sess.ExpiresAt)
}

// Destroy removes sess from the store and clears every field.
func (m *Manager) Destroy(ctx context.Context, sess *Session) error {
	if sess == nil {
		return nil
	}
	if sess.ID != "" {
		if err := m.store.Delete(ctx, sess); err != nil {
			return fmt.Errorf("destroy session: %w", err)
		}
	}
	*sess = Session{}
	return nil
}

// SyncRoleIfSelf overwrites the cached role of sess when sess belongs to
// targetID. It must run after every role change so a user who changes
// their own role sees the result on their next request. It reports whether
// the session was updated.
func (m *Manager) SyncRoleIfSelf(ctx context.Context, sess *Session, targetID uuid.UUID, role model.Role) (bool, error) {
	if sess == nil || sess.UserID == uuid.Nil || sess.UserID != targetID {
		return false, nil
	}
	if !role.Valid() {
		return false, fmt.Errorf("sync role: unknown role %q", role)
	}
	sess.Role = role
	if err := m.save(ctx, sess); err != nil {
		return false, err
	}
	m.logger.Debug("session role synced",
		zap.String("user_id", targetID.String()),
		zap.String("role", string(role)),
	)
	return true, nil
}

// PropagateRole rewrites the cached role of every live session of userID,
// keeping each session's expiry. It returns the number of sessions updated.
// Without it, a role change only reaches the session that made it.
func (m *Manager) PropagateRole(ctx context.Context, userID uuid.UUID, role model.Role) (int, error) {
	if !role.Valid() {
		return 0, fmt.Errorf("propagate role: unknown role %q", role)
	}
	ids, err := m.store.SessionIDs(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("list user sessions: %w", err)
	}

	now := m.now()
	updated := 0
	for _, id := range ids {
		sess, err := m.store.Load(ctx, id)
		if err != nil {
			return updated, fmt.Errorf("load session: %w", err)
		}
		if sess == nil || sess.UserID != userID || !now.Before(sess.ExpiresAt) {
			continue
		}
		if sess.Role == role {
			continue
		}
		sess.Role = role
		if err := m.store.Save(ctx, sess, sess.ExpiresAt.Sub(now)); err != nil {
			return updated, fmt.Errorf("save session: %w", err)
		}
		updated++
	}
	return updated, nil
}

// save stamps a fresh expiry and persists sess.
func (m *Manager) save(ctx context.Context, sess *Session) error {
	sess.ExpiresAt = m.now().Add(m.ttl)
	if err := m.store.Save(ctx, sess, m.ttl); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func generateID() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate session id: %w", err)
	}
	return hex.EncodeToString(raw), nil
}
