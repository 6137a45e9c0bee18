package service

import (
	"context"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "memberzone/internal/errors"
	"memberzone/internal/metrics"
	"memberzone/internal/model"
	"memberzone/internal/repository"
	"memberzone/internal/session"
)

// UserService exposes member administration.
type UserService interface {
	ListUsers(ctx context.Context) ([]model.User, error)
	// SetRole changes the role of the user named by rawID, then brings the
	// caller's session in line if it belongs to that user. It reports
	// whether the caller's session was changed.
	SetRole(ctx context.Context, sess *session.Session, rawID string, role model.Role) (bool, error)
}

type userService struct {
	repo      repository.UserRepository
	sessions  *session.Manager
	propagate bool
	logger    *zap.Logger
}

// NewUserService builds a UserService. With propagate set, a role change is
// also written into every other live session of the target user.
func NewUserService(repo repository.UserRepository, sessions *session.Manager, propagate bool, logger *zap.Logger) UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &userService{repo: repo, sessions: sessions, propagate: propagate, logger: logger}
}

func (s *userService) ListUsers(ctx context.Context) ([]model.User, error) {
	return s.repo.List(ctx)
}

func (s *userService) SetRole(ctx context.Context, sess *session.Session, rawID string, role model.Role) (bool, error) {
	if !role.Valid() {
		return false, apperrors.ErrInvalidRole
	}
	id, err := ParseUserID(rawID)
	if err != nil {
		return false, err
	}

	if err := s.repo.UpdateRole(ctx, id, role); err != nil {
		return false, err
	}

	self, err := s.sessions.SyncRoleIfSelf(ctx, sess, id, role)
	if err != nil {
		return false, err
	}

	fields := []zap.Field{
		zap.String("target_id", id.String()),
		zap.String("role", string(role)),
		zap.Bool("self", self),
	}
	if sess != nil && sess.UserID != uuid.Nil {
		fields = append(fields, zap.String("actor_id", sess.UserID.String()))
	}

	if s.propagate {
		n, err := s.sessions.PropagateRole(ctx, id, role)
		if err != nil {
			return self, err
		}
		fields = append(fields, zap.Int("propagated", n))
	}

	metrics.RoleChangesTotal.WithLabelValues(string(role), strconv.FormatBool(self)).Inc()
	s.logger.Info("role changed", fields...)
	return self, nil
}

// ParseUserID converts a route identifier into a user id. The canonical
// uuid.UUID value is what session ownership is compared against, so
// differently formatted spellings of one id are treated as equal.
func ParseUserID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, apperrors.ErrInvalidUserID
	}
	return id, nil
}
