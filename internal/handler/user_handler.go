package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"memberzone/internal/auth"
	apperrors "memberzone/internal/errors"
	"memberzone/internal/model"
	"memberzone/internal/service"
	"memberzone/internal/view"
)

// UserHandler serves the admin listing and the role change actions.
type UserHandler struct {
	svc      service.UserService
	sessions *auth.Sessions
}

// NewUserHandler creates a handler layer.
func NewUserHandler(svc service.UserService, sessions *auth.Sessions) *UserHandler {
	return &UserHandler{svc: svc, sessions: sessions}
}

// Admin lists every member with their role.
func (h *UserHandler) Admin(c echo.Context) error {
	users, err := h.svc.ListUsers(c.Request().Context())
	if err != nil {
		return err
	}

	sess := auth.SessionFrom(c)
	rows := make([]view.AdminUser, 0, len(users))
	for _, u := range users {
		rows = append(rows, view.AdminUser{
			ID:       u.ID,
			Username: u.Username,
			Role:     u.Role,
			IsAdmin:  u.Role.IsAdmin(),
			IsSelf:   u.ID == sess.UserID,
		})
	}
	return c.Render(http.StatusOK, view.PageAdmin, view.AdminData{Username: sess.Username, Users: rows})
}

// Promote grants the admin role to the user named in the path.
func (h *UserHandler) Promote(c echo.Context) error {
	return h.setRole(c, model.RoleAdmin)
}

// Demote sets the user named in the path back to the user role.
func (h *UserHandler) Demote(c echo.Context) error {
	return h.setRole(c, model.RoleUser)
}

func (h *UserHandler) setRole(c echo.Context, role model.Role) error {
	sess := auth.SessionFrom(c)
	self, err := h.svc.SetRole(c.Request().Context(), sess, c.Param("id"), role)
	if err != nil {
		if errors.Is(err, apperrors.ErrInvalidUserID) || errors.Is(err, apperrors.ErrUserNotFound) {
			return c.Render(http.StatusNotFound, view.PageNotFound, nil)
		}
		return err
	}

	// The session was rewritten, so its expiry moved.
	if self {
		if err := h.sessions.Issue(c, sess); err != nil {
			return err
		}
	}
	return c.Redirect(http.StatusFound, "/admin")
}
