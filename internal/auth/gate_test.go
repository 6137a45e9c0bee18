package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"memberzone/internal/model"
	"memberzone/internal/session"
	"memberzone/internal/view"
)

type gateFixture struct {
	e        *echo.Echo
	sessions *Sessions
	manager  *session.Manager
}

func newGateFixture(t *testing.T) *gateFixture {
	t.Helper()
	manager := session.NewManager(session.NewMemoryStore(nil))
	sessions := NewSessions(NewJWTService("test-secret"), manager, false, nil)
	gate := NewGate(manager)

	renderer, err := view.NewRenderer()
	require.NoError(t, err)

	e := echo.New()
	e.Renderer = renderer
	e.Use(sessions.Load())

	ok := func(c echo.Context) error { return c.String(http.StatusOK, "ok") }
	e.GET("/members", ok, gate.RequireSession("/"))
	e.GET("/admin", ok, gate.RequireSession("/login"), gate.RequireAdmin())
	e.GET("/admin-only", ok, gate.RequireAdmin())
	e.GET("/api/session", ok, gate.RequireAPISession())
	e.GET("/api/users", ok, gate.RequireAPIAdmin())

	return &gateFixture{e: e, sessions: sessions, manager: manager}
}

// cookieFor logs a user with role in and returns the signed cookie value.
func (f *gateFixture) cookieFor(t *testing.T, role model.Role) (*session.Session, *http.Cookie) {
	t.Helper()
	sess := &session.Session{}
	require.NoError(t, f.manager.Create(context.Background(), sess, &model.User{
		ID: uuid.New(), Username: "alice", Email: "a@x.com", Role: role,
	}))
	token, err := f.sessions.Tokens().GenerateSessionToken(sess.ID, sess.ExpiresAt)
	require.NoError(t, err)
	return sess, &http.Cookie{Name: SessionCookieName, Value: token}
}

func (f *gateFixture) get(path string, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	return rec
}

func TestGate_Anonymous(t *testing.T) {
	f := newGateFixture(t)

	rec := f.get("/members", nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/", rec.Header().Get(echo.HeaderLocation))

	rec = f.get("/admin", nil)
	assert.Equal(t, http.StatusFound, rec.Code, "session guard runs before the role guard")
	assert.Equal(t, "/login", rec.Header().Get(echo.HeaderLocation))

	rec = f.get("/admin-only", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code, "role guard fails closed on its own")

	rec = f.get("/api/session", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "NOT_AUTHENTICATED")
}

func TestGate_Member(t *testing.T) {
	f := newGateFixture(t)
	_, cookie := f.cookieFor(t, model.RoleUser)

	rec := f.get("/members", cookie)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.get("/admin", cookie)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "Not Authorized")

	rec = f.get("/api/users", cookie)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "NOT_AUTHORIZED")
}

func TestGate_Admin(t *testing.T) {
	f := newGateFixture(t)
	_, cookie := f.cookieFor(t, model.RoleAdmin)

	for _, path := range []string{"/members", "/admin", "/admin-only", "/api/session", "/api/users"} {
		rec := f.get(path, cookie)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestGate_UsesCachedRole(t *testing.T) {
	f := newGateFixture(t)
	sess, cookie := f.cookieFor(t, model.RoleUser)

	_, err := f.manager.SyncRoleIfSelf(context.Background(), sess, sess.UserID, model.RoleAdmin)
	require.NoError(t, err)

	rec := f.get("/admin", cookie)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSessions_ForgedCookieIsAnonymous(t *testing.T) {
	f := newGateFixture(t)
	sess, _ := f.cookieFor(t, model.RoleAdmin)

	forged, err := NewJWTService("attacker").GenerateSessionToken(sess.ID, sess.ExpiresAt)
	require.NoError(t, err)

	rec := f.get("/members", &http.Cookie{Name: SessionCookieName, Value: forged})
	assert.Equal(t, http.StatusFound, rec.Code)

	rec = f.get("/members", &http.Cookie{Name: SessionCookieName, Value: "garbage"})
	assert.Equal(t, http.StatusFound, rec.Code)
}

func TestSessions_DestroyedSessionIsAnonymous(t *testing.T) {
	f := newGateFixture(t)
	sess, cookie := f.cookieFor(t, model.RoleUser)

	require.NoError(t, f.manager.Destroy(context.Background(), sess))

	rec := f.get("/members", cookie)
	assert.Equal(t, http.StatusFound, rec.Code)
}

func TestSessions_IssueAndClear(t *testing.T) {
	f := newGateFixture(t)
	sess, _ := f.cookieFor(t, model.RoleUser)

	c := f.e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	rec := c.Response().Writer.(*httptest.ResponseRecorder)
	require.NoError(t, f.sessions.Issue(c, sess))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, SessionCookieName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, "/", cookies[0].Path)
	assert.WithinDuration(t, sess.ExpiresAt, cookies[0].Expires, time.Second)

	id, err := f.sessions.Tokens().ExtractSessionID(cookies[0].Value)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, id)

	c = f.e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	rec = c.Response().Writer.(*httptest.ResponseRecorder)
	f.sessions.Clear(c)
	cookies = rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Empty(t, cookies[0].Value)
	assert.Equal(t, -1, cookies[0].MaxAge)
}

func TestSessionFrom_NeverNil(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())

	sess := SessionFrom(c)
	require.NotNil(t, sess)
	assert.False(t, sess.Authenticated)
	assert.Same(t, sess, SessionFrom(c))
}
