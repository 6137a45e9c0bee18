// Package session owns the lifecycle of a member's login session: creation
// on signup or login, expiry, destruction on logout, and keeping the cached
// role in step when a role change targets the session's own user.
//
// A Session is scoped to one request/response cycle. Handlers receive a
// pointer to it from the request context, mutate it through the Manager,
// and the Manager persists it to a Store between requests.
package session

import (
	"context"
	"time"

	"github.com/google/uuid"

	"memberzone/internal/model"
)

// DefaultTTL is the lifetime of a session after its last write.
const DefaultTTL = time.Hour

// Session is the server-side state of one client.
//
// Authenticated implies Username, Role and ExpiresAt are set. Role is a
// copy of the user's role taken at login; guards trust it for the life of
// the session.
type Session struct {
	ID            string     `json:"id"`
	Authenticated bool       `json:"authenticated"`
	UserID        uuid.UUID  `json:"user_id"`
	Username      string     `json:"username"`
	Email         string     `json:"email"`
	Role          model.Role `json:"role"`
	ExpiresAt     time.Time  `json:"expires_at"`
}

// IsAdmin reports whether the cached role grants administrator access.
func (s *Session) IsAdmin() bool {
	return s != nil && s.Role.IsAdmin()
}

// Store persists sessions between requests. Load returns nil, nil for an
// unknown or evicted id.
type Store interface {
	Load(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, sess *Session, ttl time.Duration) error
	Delete(ctx context.Context, sess *Session) error
	// SessionIDs lists the ids of sessions saved for userID. Ids of sessions
	// that have since expired may be included.
	SessionIDs(ctx context.Context, userID uuid.UUID) ([]string, error)
}

type contextKey struct{}

// NewContext returns a copy of ctx carrying sess.
func NewContext(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, contextKey{}, sess)
}

// FromContext returns the session stored in ctx, or nil.
func FromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(contextKey{}).(*Session)
	return sess
}
