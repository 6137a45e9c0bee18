package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"memberzone/internal/cache"
)

const (
	sessionKeyPrefix   = "session:"
	userIndexKeyPrefix = "session:user:"
)

// RedisStore keeps sessions as JSON values with a TTL, plus a per-user set
// of session ids.
type RedisStore struct {
	cache *cache.Client
}

// Ensure RedisStore implements Store
var _ Store = (*RedisStore)(nil)

// NewRedisStore creates a Redis-backed session store.
func NewRedisStore(cache *cache.Client) *RedisStore {
	return &RedisStore{cache: cache}
}

func (s *RedisStore) Load(ctx context.Context, id string) (*Session, error) {
	data, err := s.cache.Get(ctx, sessionKeyPrefix+id)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &sess, nil
}

func (s *RedisStore) Save(ctx context.Context, sess *Session, ttl time.Duration) error {
	payload, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := s.cache.Set(ctx, sessionKeyPrefix+sess.ID, payload, ttl); err != nil {
		return err
	}
	if sess.UserID != uuid.Nil {
		return s.cache.AddMember(ctx, userIndexKeyPrefix+sess.UserID.String(), sess.ID, ttl)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, sess *Session) error {
	if err := s.cache.Delete(ctx, sessionKeyPrefix+sess.ID); err != nil {
		return err
	}
	if sess.UserID != uuid.Nil {
		return s.cache.RemoveMember(ctx, userIndexKeyPrefix+sess.UserID.String(), sess.ID)
	}
	return nil
}

func (s *RedisStore) SessionIDs(ctx context.Context, userID uuid.UUID) ([]string, error) {
	return s.cache.Members(ctx, userIndexKeyPrefix+userID.String())
}
