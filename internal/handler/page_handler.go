package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"memberzone/internal/auth"
	"memberzone/internal/view"
)

// PageHandler serves the static member pages.
type PageHandler struct {
	gate *auth.Gate
}

// NewPageHandler creates a page handler.
func NewPageHandler(gate *auth.Gate) *PageHandler {
	return &PageHandler{gate: gate}
}

// Home renders the logged-in greeting for members and the landing page
// for everyone else.
func (h *PageHandler) Home(c echo.Context) error {
	if h.gate.Authenticated(c) {
		return c.Render(http.StatusOK, view.PageLoggedIn, view.UserData{Username: auth.SessionFrom(c).Username})
	}
	return c.Render(http.StatusOK, view.PageHome, nil)
}

// Members renders the members area. Requires a session.
func (h *PageHandler) Members(c echo.Context) error {
	return c.Render(http.StatusOK, view.PageMembers, view.UserData{Username: auth.SessionFrom(c).Username})
}

// NotFound renders the 404 page.
func (h *PageHandler) NotFound(c echo.Context) error {
	return c.Render(http.StatusNotFound, view.PageNotFound, nil)
}
