// Package view renders the site's HTML pages.
package view

import (
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"memberzone/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

// Page names accepted by Renderer.Render.
const (
	PageHome     = "home"
	PageLoggedIn = "loggedin"
	PageSignup   = "signup"
	PageLogin    = "login"
	PageMembers  = "members"
	PageAdmin    = "admin"
	PageError    = "error"
	PageNotFound = "404"
)

var pages = []string{
	PageHome,
	PageLoggedIn,
	PageSignup,
	PageLogin,
	PageMembers,
	PageAdmin,
	PageError,
	PageNotFound,
}

// UserData is the template context for pages greeting a member.
type UserData struct {
	Username string
}

// FormData is the template context for the signup and login forms.
type FormData struct {
	ErrorMsg string
	Email    string
	Username string
}

// ErrorData is the template context for the error page.
type ErrorData struct {
	Error string
}

// AdminUser is one row of the admin listing.
type AdminUser struct {
	ID       uuid.UUID
	Username string
	Role     model.Role
	IsAdmin  bool
	IsSelf   bool
}

// AdminData is the template context for the admin listing.
type AdminData struct {
	Username string
	Users    []AdminUser
}

// Renderer is an echo.Renderer over the embedded templates.
type Renderer struct {
	templates map[string]*template.Template
}

// Ensure Renderer implements echo.Renderer
var _ echo.Renderer = (*Renderer)(nil)

// NewRenderer parses every page with the shared layout.
func NewRenderer() (*Renderer, error) {
	r := &Renderer{templates: make(map[string]*template.Template, len(pages))}
	for _, name := range pages {
		tmpl, err := template.ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		r.templates[name] = tmpl
	}
	return r, nil
}

// Render implements echo.Renderer.
func (r *Renderer) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	tmpl, ok := r.templates[name]
	if !ok {
		return fmt.Errorf("unknown template %q", name)
	}
	return tmpl.ExecuteTemplate(w, "layout", data)
}
