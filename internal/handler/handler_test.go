package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"memberzone/internal/auth"
	apperrors "memberzone/internal/errors"
	"memberzone/internal/model"
	"memberzone/internal/service"
	"memberzone/internal/session"
	"memberzone/internal/validation"
	"memberzone/internal/view"
)

// MockAuthService is a mock implementation of service.AuthService.
type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Signup(ctx context.Context, sess *session.Session, in validation.SignupInput) (*model.User, error) {
	args := m.Called(ctx, sess, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockAuthService) Login(ctx context.Context, sess *session.Session, in validation.LoginInput) (*model.User, error) {
	args := m.Called(ctx, sess, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockAuthService) Logout(ctx context.Context, sess *session.Session) error {
	return m.Called(ctx, sess).Error(0)
}

// MockUserService is a mock implementation of service.UserService.
type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) ListUsers(ctx context.Context) ([]model.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.User), args.Error(1)
}

func (m *MockUserService) SetRole(ctx context.Context, sess *session.Session, rawID string, role model.Role) (bool, error) {
	args := m.Called(ctx, sess, rawID, role)
	return args.Bool(0), args.Error(1)
}

var (
	_ service.AuthService = (*MockAuthService)(nil)
	_ service.UserService = (*MockUserService)(nil)
)

func newEcho(t *testing.T) *echo.Echo {
	t.Helper()
	renderer, err := view.NewRenderer()
	require.NoError(t, err)
	e := echo.New()
	e.Renderer = renderer
	return e
}

func newSessions() *auth.Sessions {
	return auth.NewSessions(auth.NewJWTService("secret"), session.NewManager(session.NewMemoryStore(nil)), false, nil)
}

func formContext(e *echo.Echo, path string, form url.Values) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestAuthHandler_SignupSubmit_ValidationError(t *testing.T) {
	e := newEcho(t)
	svc := new(MockAuthService)
	svc.On("Signup", mock.Anything, mock.Anything, validation.SignupInput{Username: "a!", Email: "a@x.com", Password: "pw"}).
		Return(nil, &validation.Error{Field: "username", Message: `"username" must only contain alpha-numeric characters`})
	h := NewAuthHandler(svc, newSessions(), nil)

	c, rec := formContext(e, "/signupSubmit", url.Values{"username": {"a!"}, "email": {"a@x.com"}, "password": {"pw"}})
	require.NoError(t, h.SignupSubmit(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "must only contain alpha-numeric characters")
	assert.Contains(t, rec.Body.String(), `value="a@x.com"`)
	assert.Empty(t, rec.Result().Cookies())
}

func TestAuthHandler_SignupSubmit_StoreError(t *testing.T) {
	e := newEcho(t)
	svc := new(MockAuthService)
	svc.On("Signup", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("db down"))
	h := NewAuthHandler(svc, newSessions(), nil)

	c, _ := formContext(e, "/signupSubmit", url.Values{"username": {"alice"}, "email": {"a@x.com"}, "password": {"pw"}})
	assert.EqualError(t, h.SignupSubmit(c), "db down")
}

func TestAuthHandler_LoggingIn(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   string
		wantCookie bool
	}{
		{name: "success", wantStatus: http.StatusFound, wantCookie: true},
		{name: "bad credentials", err: service.ErrInvalidCredentials, wantStatus: http.StatusUnauthorized, wantBody: "Invalid email/password combination."},
		{name: "bad email", err: &validation.Error{Message: `"email" must be a valid email`}, wantStatus: http.StatusOK, wantBody: "must be a valid email"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEcho(t)
			sessions := newSessions()
			svc := new(MockAuthService)
			call := svc.On("Login", mock.Anything, mock.Anything, validation.LoginInput{Email: "a@x.com", Password: "pw"})
			if tt.err != nil {
				call.Return(nil, tt.err)
			} else {
				call.Run(func(args mock.Arguments) {
					sess := args.Get(1).(*session.Session)
					require.NoError(t, sessions.Manager().Create(context.Background(), sess, &model.User{ID: uuid.New(), Username: "alice", Role: model.RoleUser}))
				}).Return(&model.User{}, nil)
			}
			h := NewAuthHandler(svc, sessions, nil)

			c, rec := formContext(e, "/loggingin", url.Values{"email": {"a@x.com"}, "password": {"pw"}})
			require.NoError(t, h.LoggingIn(c))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
			assert.Equal(t, tt.wantCookie, len(rec.Result().Cookies()) == 1)
		})
	}
}

func TestAuthHandler_Logout_Anonymous(t *testing.T) {
	e := newEcho(t)
	svc := new(MockAuthService)
	h := NewAuthHandler(svc, newSessions(), nil)

	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/logout", nil), httptest.NewRecorder())
	require.NoError(t, h.Logout(c))

	assert.Equal(t, http.StatusFound, c.Response().Status)
	svc.AssertNotCalled(t, "Logout", mock.Anything, mock.Anything)
}

func TestUserHandler_SetRole_Errors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "invalid id", err: apperrors.ErrInvalidUserID, wantStatus: http.StatusNotFound},
		{name: "unknown user", err: apperrors.ErrUserNotFound, wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEcho(t)
			svc := new(MockUserService)
			svc.On("SetRole", mock.Anything, mock.Anything, "xyz", model.RoleAdmin).Return(false, tt.err)
			h := NewUserHandler(svc, newSessions())

			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodPost, "/promote/xyz", nil), rec)
			c.SetParamNames("id")
			c.SetParamValues("xyz")

			require.NoError(t, h.Promote(c))
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), "404")
		})
	}
}

func TestUserHandler_Demote_SelfReissuesCookie(t *testing.T) {
	e := newEcho(t)
	sessions := newSessions()
	svc := new(MockUserService)
	svc.On("SetRole", mock.Anything, mock.Anything, "me", model.RoleUser).Return(true, nil)
	h := NewUserHandler(svc, sessions)

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/demote/me", nil), rec)
	c.SetParamNames("id")
	c.SetParamValues("me")
	sess := auth.SessionFrom(c)
	require.NoError(t, sessions.Manager().Create(context.Background(), sess, &model.User{ID: uuid.New(), Username: "root", Role: model.RoleAdmin}))

	require.NoError(t, h.Demote(c))
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/admin", rec.Header().Get(echo.HeaderLocation))
	assert.Len(t, rec.Result().Cookies(), 1)
}

func TestUserHandler_Admin(t *testing.T) {
	e := newEcho(t)
	self := uuid.New()
	other := uuid.New()
	svc := new(MockUserService)
	svc.On("ListUsers", mock.Anything).Return([]model.User{
		{ID: self, Username: "root", Role: model.RoleAdmin},
		{ID: other, Username: "bob", Role: model.RoleUser},
	}, nil)
	sessions := newSessions()
	h := NewUserHandler(svc, sessions)

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/admin", nil), rec)
	require.NoError(t, sessions.Manager().Create(context.Background(), auth.SessionFrom(c), &model.User{ID: self, Username: "root", Role: model.RoleAdmin}))

	require.NoError(t, h.Admin(c))
	body := rec.Body.String()
	assert.Contains(t, body, "root (you)")
	assert.Contains(t, body, "/demote/"+self.String())
	assert.Contains(t, body, "/promote/"+other.String())
}

func TestPageHandler_Home(t *testing.T) {
	e := newEcho(t)
	sessions := newSessions()
	h := NewPageHandler(auth.NewGate(sessions.Manager()))

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	require.NoError(t, h.Home(c))
	assert.Contains(t, rec.Body.String(), "Welcome")

	rec = httptest.NewRecorder()
	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	require.NoError(t, sessions.Manager().Create(context.Background(), auth.SessionFrom(c), &model.User{ID: uuid.New(), Username: "alice", Role: model.RoleUser}))
	require.NoError(t, h.Home(c))
	assert.Contains(t, rec.Body.String(), "Hello, alice!")
}
