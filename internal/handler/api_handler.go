package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"memberzone/internal/auth"
	"memberzone/internal/model"
	"memberzone/internal/service"
)

// APIHandler serves the JSON view of sessions and members.
type APIHandler struct {
	users service.UserService
}

// NewAPIHandler creates a new API handler.
func NewAPIHandler(users service.UserService) *APIHandler {
	return &APIHandler{users: users}
}

// SessionResponse describes the caller's session.
type SessionResponse struct {
	Authenticated bool       `json:"authenticated"`
	UserID        uuid.UUID  `json:"user_id"`
	Username      string     `json:"username"`
	Email         string     `json:"email"`
	Role          model.Role `json:"role"`
	ExpiresAt     time.Time  `json:"expires_at"`
}

// UserResponse is one member in the listing.
type UserResponse struct {
	ID        uuid.UUID  `json:"id"`
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	Role      model.Role `json:"role"`
	CreatedAt time.Time  `json:"created_at"`
}

// Session godoc
// @Summary Current session
// @Tags session
// @Produce json
// @Success 200 {object} SessionResponse
// @Failure 401 {object} errors.ErrorResponse
// @Security CookieAuth
// @Router /session [get]
func (h *APIHandler) Session(c echo.Context) error {
	sess := auth.SessionFrom(c)
	return c.JSON(http.StatusOK, SessionResponse{
		Authenticated: sess.Authenticated,
		UserID:        sess.UserID,
		Username:      sess.Username,
		Email:         sess.Email,
		Role:          sess.Role,
		ExpiresAt:     sess.ExpiresAt,
	})
}

// ListUsers godoc
// @Summary List users
// @Tags users
// @Produce json
// @Success 200 {array} UserResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Security CookieAuth
// @Router /users [get]
func (h *APIHandler) ListUsers(c echo.Context) error {
	users, err := h.users.ListUsers(c.Request().Context())
	if err != nil {
		return err
	}
	out := make([]UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, UserResponse{
			ID:        u.ID,
			Username:  u.Username,
			Email:     u.Email,
			Role:      u.Role,
			CreatedAt: u.CreatedAt,
		})
	}
	return c.JSON(http.StatusOK, out)
}
