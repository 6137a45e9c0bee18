package auth

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"memberzone/internal/session"
)

// SessionCookieName is the cookie carrying the signed session id.
const SessionCookieName = "sid"

// sessionContextKey is the echo.Context key holding *session.Session.
const sessionContextKey = "session"

// Sessions loads the caller's session on every request and writes the
// session cookie after it changes.
type Sessions struct {
	tokens  *JWTService
	manager *session.Manager
	secure  bool
	logger  *zap.Logger
}

// NewSessions creates the session middleware. secure marks cookies
// Secure, for deployments behind TLS.
func NewSessions(tokens *JWTService, manager *session.Manager, secure bool, logger *zap.Logger) *Sessions {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sessions{tokens: tokens, manager: manager, secure: secure, logger: logger}
}

// Manager returns the underlying session manager.
func (s *Sessions) Manager() *session.Manager {
	return s.manager
}

// Tokens returns the cookie signer.
func (s *Sessions) Tokens() *JWTService {
	return s.tokens
}

// Load attaches the caller's session, anonymous if the cookie is missing,
// forged or points at an expired session. Store failures abort the request.
func (s *Sessions) Load() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			var id string
			if cookie, err := c.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
				id, err = s.tokens.ExtractSessionID(cookie.Value)
				if err != nil {
					s.logger.Debug("ignoring session cookie", zap.Error(err))
					id = ""
				}
			}

			sess, err := s.manager.Load(c.Request().Context(), id)
			if err != nil {
				return err
			}
			attach(c, sess)
			return next(c)
		}
	}
}

// Issue writes the cookie for sess. Call it after every session write so the
// cookie expiry follows the session's.
func (s *Sessions) Issue(c echo.Context, sess *session.Session) error {
	token, err := s.tokens.GenerateSessionToken(sess.ID, sess.ExpiresAt)
	if err != nil {
		return err
	}
	c.SetCookie(&http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  sess.ExpiresAt,
		MaxAge:   int(time.Until(sess.ExpiresAt).Seconds()),
	})
	return nil
}

// Clear expires the session cookie in the browser.
func (s *Sessions) Clear(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
	})
}

// SessionFrom returns the session attached by Load. Without one it returns
// an anonymous session, so callers never see nil.
func SessionFrom(c echo.Context) *session.Session {
	if sess, ok := c.Get(sessionContextKey).(*session.Session); ok && sess != nil {
		return sess
	}
	if sess := session.FromContext(c.Request().Context()); sess != nil {
		return sess
	}
	sess := &session.Session{}
	attach(c, sess)
	return sess
}

func attach(c echo.Context, sess *session.Session) {
	c.Set(sessionContextKey, sess)
	req := c.Request()
	c.SetRequest(req.WithContext(session.NewContext(req.Context(), sess)))
}
