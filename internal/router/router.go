package router

import (
	"errors"
	"net/http"
	"strings"
	"time"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"memberzone/internal/auth"
	"memberzone/internal/config"
	apperrors "memberzone/internal/errors"
	"memberzone/internal/handler"
	"memberzone/internal/validation"
	"memberzone/internal/view"
)

// Handlers groups the route handlers.
type Handlers struct {
	Pages *handler.PageHandler
	Auth  *handler.AuthHandler
	Users *handler.UserHandler
	API   *handler.APIHandler
}

// Register wires routes and middleware.
func Register(
	e *echo.Echo,
	cfg *config.Config,
	logger *zap.Logger,
	gatherer prometheus.Gatherer,
	sessions *auth.Sessions,
	h Handlers,
) {
	e.Use(middleware.RequestID())
	e.Use(requestLogger(logger))
	e.Use(middleware.Recover())

	e.Validator = validation.New()
	e.HTTPErrorHandler = errorHandler(e, logger)

	gate := auth.NewGate(sessions.Manager())

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	site := e.Group("", sessions.Load())

	site.GET("/", h.Pages.Home)
	site.GET("/signup", h.Auth.SignupForm)
	site.POST("/signupSubmit", h.Auth.SignupSubmit)
	site.GET("/login", h.Auth.LoginForm)
	site.POST("/loggingin", h.Auth.LoggingIn, loginLimiter(cfg.LoginRateLimit))
	site.GET("/logout", h.Auth.Logout)
	site.GET("/members", h.Pages.Members, gate.RequireSession("/"))
	site.GET("/admin", h.Users.Admin, gate.RequireSession("/login"), gate.RequireAdmin())

	var roleGuards []echo.MiddlewareFunc
	if cfg.GuardRoleChanges {
		roleGuards = append(roleGuards, gate.RequireSession("/login"), gate.RequireAdmin())
	} else {
		logger.Warn("role change routes are unguarded")
	}
	site.POST("/promote/:id", h.Users.Promote, roleGuards...)
	site.POST("/demote/:id", h.Users.Demote, roleGuards...)

	api := e.Group("/api", sessions.Load(), echojwt.WithConfig(echojwt.Config{
		TokenLookup: "cookie:" + auth.SessionCookieName,
		ParseTokenFunc: func(c echo.Context, token string) (interface{}, error) {
			return sessions.Tokens().ValidateToken(token)
		},
		ErrorHandler: func(c echo.Context, err error) error {
			httpErr := apperrors.MapErrorToHTTP(apperrors.ErrNotAuthenticated)
			return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
		},
	}))
	api.GET("/session", h.API.Session, gate.RequireAPISession())
	api.GET("/users", h.API.ListUsers, gate.RequireAPISession(), gate.RequireAPIAdmin())

	site.RouteNotFound("/*", h.Pages.NotFound)
}

func requestLogger(logger *zap.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("remote_ip", v.RemoteIP),
				zap.String("request_id", v.RequestID),
			}
			if v.Error != nil {
				logger.Error("request", append(fields, zap.Error(v.Error))...)
				return nil
			}
			logger.Info("request", fields...)
			return nil
		},
	})
}

// loginLimiter throttles login attempts per client IP.
func loginLimiter(perSecond float64) echo.MiddlewareFunc {
	if perSecond <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(perSecond),
			Burst:     max(1, int(perSecond)),
			ExpiresIn: 3 * time.Minute,
		}),
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		DenyHandler: func(c echo.Context, _ string, _ error) error {
			return c.Render(http.StatusTooManyRequests, view.PageLogin, view.FormData{
				ErrorMsg: "Too many login attempts. Try again shortly.",
			})
		},
	})
}

// errorHandler renders HTML error pages for the site and JSON for /api.
func errorHandler(e *echo.Echo, logger *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		if strings.HasPrefix(c.Request().URL.Path, "/api") {
			e.DefaultHTTPErrorHandler(err, c)
			return
		}

		code := http.StatusInternalServerError
		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
		}

		var renderErr error
		switch {
		case code == http.StatusNotFound:
			renderErr = c.Render(code, view.PageNotFound, nil)
		case code >= http.StatusInternalServerError:
			logger.Error("request failed", zap.Error(err), zap.String("uri", c.Request().RequestURI))
			renderErr = c.Render(code, view.PageError, view.ErrorData{Error: http.StatusText(code)})
		default:
			renderErr = c.Render(code, view.PageError, view.ErrorData{Error: http.StatusText(code)})
		}
		if renderErr != nil {
			logger.Error("render error page", zap.Error(renderErr))
		}
	}
}
