package service

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"memberzone/internal/auth"
	apperrors "memberzone/internal/errors"
	"memberzone/internal/metrics"
	"memberzone/internal/model"
	"memberzone/internal/repository"
	"memberzone/internal/session"
	"memberzone/internal/validation"
)

// ErrInvalidCredentials is returned when email or password is incorrect.
var ErrInvalidCredentials = apperrors.ErrInvalidCredentials

// AuthService handles signup, login and logout. Each operation mutates the
// caller's session in place; the handler writes the cookie afterwards.
type AuthService interface {
	Signup(ctx context.Context, sess *session.Session, in validation.SignupInput) (*model.User, error)
	Login(ctx context.Context, sess *session.Session, in validation.LoginInput) (*model.User, error)
	Logout(ctx context.Context, sess *session.Session) error
}

type authService struct {
	userRepo  repository.UserRepository
	hasher    auth.CredentialVerifier
	sessions  *session.Manager
	validator *validation.Validator
	logger    *zap.Logger

	dummyOnce sync.Once
	dummyHash string
}

// NewAuthService creates a new authentication service.
func NewAuthService(
	userRepo repository.UserRepository,
	hasher auth.CredentialVerifier,
	sessions *session.Manager,
	validator *validation.Validator,
	logger *zap.Logger,
) AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &authService{
		userRepo:  userRepo,
		hasher:    hasher,
		sessions:  sessions,
		validator: validator,
		logger:    logger,
	}
}

// Signup validates the form, stores a new member with the user role and
// logs them in. On a validation error nothing is stored and sess is untouched.
func (s *authService) Signup(ctx context.Context, sess *session.Session, in validation.SignupInput) (*model.User, error) {
	if err := s.validator.ValidateSignup(in); err != nil {
		metrics.SignupsTotal.WithLabelValues(metrics.OutcomeInvalid).Inc()
		return nil, err
	}

	hashed, err := s.hasher.Hash(ctx, in.Password)
	if err != nil {
		metrics.SignupsTotal.WithLabelValues(metrics.OutcomeError).Inc()
		return nil, err
	}

	user := &model.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hashed,
		Role:         model.RoleUser,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		metrics.SignupsTotal.WithLabelValues(metrics.OutcomeError).Inc()
		return nil, err
	}
	s.logger.Info("user signed up", zap.String("user_id", user.ID.String()), zap.String("username", user.Username))

	if err := s.sessions.Create(ctx, sess, user); err != nil {
		metrics.SignupsTotal.WithLabelValues(metrics.OutcomeError).Inc()
		return nil, fmt.Errorf("start session: %w", err)
	}
	metrics.SignupsTotal.WithLabelValues(metrics.OutcomeSuccess).Inc()
	return user, nil
}

// Login authenticates by email and password. Exactly one account must
// carry the email. An unknown email and a wrong password both yield
// ErrInvalidCredentials and leave sess untouched.
func (s *authService) Login(ctx context.Context, sess *session.Session, in validation.LoginInput) (*model.User, error) {
	if err := s.validator.ValidateLogin(in); err != nil {
		metrics.LoginsTotal.WithLabelValues(metrics.OutcomeInvalid).Inc()
		return nil, err
	}

	users, err := s.userRepo.FindByEmail(ctx, in.Email)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues(metrics.OutcomeError).Inc()
		return nil, err
	}

	if len(users) != 1 {
		// Spend the same hashing time as a real comparison.
		if _, err := s.hasher.Verify(ctx, s.placeholderHash(ctx), in.Password); err != nil {
			s.logger.Warn("placeholder verify failed", zap.Error(err))
		}
		s.rejectLogin(in.Email, len(users))
		return nil, ErrInvalidCredentials
	}

	user := &users[0]
	ok, err := s.hasher.Verify(ctx, user.PasswordHash, in.Password)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues(metrics.OutcomeError).Inc()
		return nil, err
	}
	if !ok {
		s.rejectLogin(in.Email, 1)
		return nil, ErrInvalidCredentials
	}

	if err := s.sessions.Create(ctx, sess, user); err != nil {
		metrics.LoginsTotal.WithLabelValues(metrics.OutcomeError).Inc()
		return nil, fmt.Errorf("start session: %w", err)
	}
	metrics.LoginsTotal.WithLabelValues(metrics.OutcomeSuccess).Inc()
	s.logger.Info("user logged in", zap.String("user_id", user.ID.String()))
	return user, nil
}

// Logout destroys the session.
func (s *authService) Logout(ctx context.Context, sess *session.Session) error {
	userID := sess.UserID
	if err := s.sessions.Destroy(ctx, sess); err != nil {
		return err
	}
	s.logger.Info("user logged out", zap.String("user_id", userID.String()))
	return nil
}

func (s *authService) rejectLogin(email string, matches int) {
	metrics.LoginsTotal.WithLabelValues(metrics.OutcomeRejected).Inc()
	s.logger.Info("login rejected", zap.String("email", email), zap.Int("matches", matches))
}

// placeholderHash returns a hash no password matches, computed once.
func (s *authService) placeholderHash(ctx context.Context) string {
	s.dummyOnce.Do(func() {
		hashed, err := s.hasher.Hash(ctx, "placeholder-password")
		if err != nil {
			s.logger.Warn("placeholder hash failed", zap.Error(err))
			return
		}
		s.dummyHash = hashed
	})
	return s.dummyHash
}
