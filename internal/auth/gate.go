package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"

	apperrors "memberzone/internal/errors"
	"memberzone/internal/metrics"
	"memberzone/internal/session"
	"memberzone/internal/view"
)

// Gate holds the access guards. Guards read only the request's session,
// never the user store; the cached role is authoritative until the session
// is rewritten.
//
// For admin routes apply RequireSession before RequireAdmin.
type Gate struct {
	manager *session.Manager
}

// NewGate creates a Gate over manager.
func NewGate(manager *session.Manager) *Gate {
	return &Gate{manager: manager}
}

// Authenticated reports whether c carries a live session.
func (g *Gate) Authenticated(c echo.Context) bool {
	return g.manager.IsAuthenticated(SessionFrom(c))
}

// Admin reports whether c carries a live session with the admin role.
func (g *Gate) Admin(c echo.Context) bool {
	sess := SessionFrom(c)
	return g.manager.IsAuthenticated(sess) && sess.IsAdmin()
}

// RequireSession redirects callers without a live session to redirectTo.
func (g *Gate) RequireSession(redirectTo string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !g.Authenticated(c) {
				metrics.GateRefusalsTotal.WithLabelValues(metrics.GuardSession).Inc()
				return c.Redirect(http.StatusFound, redirectTo)
			}
			return next(c)
		}
	}
}

// RequireAdmin answers 403 with the error page unless the session role is
// admin. It fails closed on an unauthenticated session too.
func (g *Gate) RequireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !g.Admin(c) {
				metrics.GateRefusalsTotal.WithLabelValues(metrics.GuardRole).Inc()
				return c.Render(http.StatusForbidden, view.PageError, view.ErrorData{
					Error: apperrors.ErrNotAuthorized.Error(),
				})
			}
			return next(c)
		}
	}
}

// RequireAPISession answers 401 JSON without a live session.
func (g *Gate) RequireAPISession() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !g.Authenticated(c) {
				metrics.GateRefusalsTotal.WithLabelValues(metrics.GuardSession).Inc()
				httpErr := apperrors.MapErrorToHTTP(apperrors.ErrNotAuthenticated)
				return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
			}
			return next(c)
		}
	}
}

// RequireAPIAdmin answers 403 JSON unless the session role is admin.
func (g *Gate) RequireAPIAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !g.Admin(c) {
				metrics.GateRefusalsTotal.WithLabelValues(metrics.GuardRole).Inc()
				httpErr := apperrors.MapErrorToHTTP(apperrors.ErrNotAuthorized)
				return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
			}
			return next(c)
		}
	}
}
