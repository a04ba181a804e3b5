package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Skotchmaster/video_hosting/internal/jwthelp"
	"github.com/Skotchmaster/video_hosting/internal/middleware"
	"github.com/Skotchmaster/video_hosting/internal/models"
	"github.com/Skotchmaster/video_hosting/internal/service"
	"github.com/Skotchmaster/video_hosting/internal/testutil"
	"github.com/Skotchmaster/video_hosting/internal/tokens"
)

type authFixture struct {
	db     *gorm.DB
	tokens *service.TokenService
	e      *echo.Echo
	user   models.User
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	db := testutil.NewDB(t)
	tokens := &service.TokenService{
		DB:            db,
		AccessSecret:  []byte("access-secret"),
		RefreshSecret: []byte("refresh-secret"),
	}
	authMw := middleware.NewAuth(db, tokens)

	e := echo.New()
	e.GET("/private", func(c echo.Context) error {
		id, _ := middleware.CurrentUserID(c)
		return c.JSON(http.StatusOK, echo.Map{"user_id": id})
	}, authMw.RequireAuth)
	e.GET("/public", func(c echo.Context) error {
		id, ok := middleware.CurrentUserID(c)
		return c.JSON(http.StatusOK, echo.Map{"user_id": id, "authenticated": ok})
	}, authMw.OptionalAuth)

	return &authFixture{
		db:     db,
		tokens: tokens,
		e:      e,
		user:   testutil.CreateUser(t, db, "someone"),
	}
}

func (f *authFixture) accessToken(t *testing.T) string {
	t.Helper()
	pair, err := f.tokens.IssueTokenPair(context.Background(), f.user.ID)
	require.NoError(t, err)
	return pair.AccessToken
}

func TestRequireAuthRejectsMissingToken(t *testing.T) {
	f := newAuthFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	// Rejection clears both cookies.
	cleared := 0
	for _, c := range rec.Result().Cookies() {
		if c.Name == jwthelp.AccessCookieName || c.Name == jwthelp.RefreshCookieName {
			assert.Less(t, c.MaxAge, 0)
			cleared++
		}
	}
	assert.Equal(t, 2, cleared)
}

func TestRequireAuthRejectsBadToken(t *testing.T) {
	f := newAuthFixture(t)

	for _, token := range []string{"garbage", "a.b.c"} {
		req := httptest.NewRequest(http.MethodGet, "/private", nil)
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
		rec := httptest.NewRecorder()
		f.e.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	}
}

func TestRequireAuthRejectsExpiredToken(t *testing.T) {
	f := newAuthFixture(t)

	token, err := tokens.NewAccessToken(f.user.ID, time.Now().Add(-time.Minute), f.tokens.AccessSecret)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuthAcceptsBearerHeader(t *testing.T) {
	f := newAuthFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+f.accessToken(t))
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"user_id":1`)
}

func TestRequireAuthAcceptsCookie(t *testing.T) {
	f := newAuthFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	req.AddCookie(&http.Cookie{Name: jwthelp.AccessCookieName, Value: f.accessToken(t)})
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAuthRejectsVanishedUser(t *testing.T) {
	f := newAuthFixture(t)
	token := f.accessToken(t)

	require.NoError(t, f.db.Delete(&models.User{}, f.user.ID).Error)

	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestOptionalAuthPassesAnonymous(t *testing.T) {
	f := newAuthFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/public", nil)
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"authenticated":false`)

	// Same route with a token attaches the identity.
	req = httptest.NewRequest(http.MethodGet, "/public", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+f.accessToken(t))
	rec = httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"authenticated":true`)
}
