package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"memberzone/internal/auth"
	"memberzone/internal/service"
	"memberzone/internal/validation"
	"memberzone/internal/view"
)

// AuthHandler serves the signup, login and logout pages.
type AuthHandler struct {
	authService service.AuthService
	sessions    *auth.Sessions
	logger      *zap.Logger
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(authService service.AuthService, sessions *auth.Sessions, logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{authService: authService, sessions: sessions, logger: logger}
}

// SignupForm renders the signup form.
func (h *AuthHandler) SignupForm(c echo.Context) error {
	return c.Render(http.StatusOK, view.PageSignup, view.FormData{})
}

// SignupSubmit creates a member and logs them in. A validation failure
// re-renders the form with the first message.
func (h *AuthHandler) SignupSubmit(c echo.Context) error {
	var in validation.SignupInput
	if err := c.Bind(&in); err != nil {
		return c.Render(http.StatusBadRequest, view.PageSignup, view.FormData{ErrorMsg: "invalid form submission"})
	}

	sess := auth.SessionFrom(c)
	if _, err := h.authService.Signup(c.Request().Context(), sess, in); err != nil {
		var verr *validation.Error
		if errors.As(err, &verr) {
			return c.Render(http.StatusOK, view.PageSignup, view.FormData{
				ErrorMsg: verr.Message,
				Email:    in.Email,
				Username: in.Username,
			})
		}
		return err
	}

	if err := h.sessions.Issue(c, sess); err != nil {
		return err
	}
	return c.Redirect(http.StatusFound, "/members")
}

// LoginForm renders the login form.
func (h *AuthHandler) LoginForm(c echo.Context) error {
	return c.Render(http.StatusOK, view.PageLogin, view.FormData{})
}

// LoggingIn checks the submitted credentials. Unknown email and wrong
// password produce the same page.
func (h *AuthHandler) LoggingIn(c echo.Context) error {
	var in validation.LoginInput
	if err := c.Bind(&in); err != nil {
		return c.Render(http.StatusBadRequest, view.PageLogin, view.FormData{ErrorMsg: "invalid form submission"})
	}

	sess := auth.SessionFrom(c)
	if _, err := h.authService.Login(c.Request().Context(), sess, in); err != nil {
		var verr *validation.Error
		switch {
		case errors.As(err, &verr):
			return c.Render(http.StatusOK, view.PageLogin, view.FormData{ErrorMsg: verr.Message, Email: in.Email})
		case errors.Is(err, service.ErrInvalidCredentials):
			return c.Render(http.StatusUnauthorized, view.PageLogin, view.FormData{ErrorMsg: err.Error()})
		default:
			return err
		}
	}

	if err := h.sessions.Issue(c, sess); err != nil {
		return err
	}
	return c.Redirect(http.StatusFound, "/")
}

// Logout destroys the session and clears the cookie.
func (h *AuthHandler) Logout(c echo.Context) error {
	sess := auth.SessionFrom(c)
	if sess.ID != "" {
		if err := h.authService.Logout(c.Request().Context(), sess); err != nil {
			return err
		}
	}
	h.sessions.Clear(c)
	return c.Redirect(http.StatusFound, "/")
}
