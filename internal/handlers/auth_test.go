package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Skotchmaster/video_hosting/internal/handlers"
	"github.com/Skotchmaster/video_hosting/internal/jwthelp"
	"github.com/Skotchmaster/video_hosting/internal/middleware"
	"github.com/Skotchmaster/video_hosting/internal/models"
	"github.com/Skotchmaster/video_hosting/internal/service"
	"github.com/Skotchmaster/video_hosting/internal/testutil"
	transport "github.com/Skotchmaster/video_hosting/internal/transport/http"
)

// stubMedia satisfies the blob-store dependency without network IO.
type stubMedia struct {
	uploads int
	deletes []string
}

func (s *stubMedia) Upload(_ context.Context, kind, filename, _ string, body io.Reader) (string, error) {
	io.Copy(io.Discard, body)
	s.uploads++
	return "https://cdn.example.com/" + kind + "/" + filename, nil
}

func (s *stubMedia) Delete(_ context.Context, fileURL string) error {
	s.deletes = append(s.deletes, fileURL)
	return nil
}

type fixture struct {
	db    *gorm.DB
	e     *echo.Echo
	media *stubMedia
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutil.NewDB(t)
	tokens := &service.TokenService{
		DB:            db,
		AccessSecret:  []byte("access-secret"),
		RefreshSecret: []byte("refresh-secret"),
	}
	relations := &service.RelationService{DB: db}
	views := &service.ViewService{DB: db}
	media := &stubMedia{}
	authMw := middleware.NewAuth(db, tokens)

	e := echo.New()
	transport.Register(e, transport.Deps{
		Auth:          authMw,
		AuthHandler:   &handlers.AuthHandler{DB: db, Tokens: tokens, Media: media},
		Videos:        &handlers.VideoHandler{DB: db, Media: media, Relations: relations, Views: views},
		Comments:      &handlers.CommentHandler{DB: db, Relations: relations},
		Likes:         &handlers.LikeHandler{DB: db, Relations: relations, Views: views},
		Subscriptions: &handlers.SubscriptionHandler{DB: db, Relations: relations, Views: views},
		Channels:      &handlers.ChannelHandler{Views: views},
		Playlists:     &handlers.PlaylistHandler{DB: db},
		Search:        &handlers.SearchHandler{},
	})

	return &fixture{db: db, e: e, media: media}
}

func multipartBody(t *testing.T, fields map[string]string, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for field, filename := range files {
		fw, err := w.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = fw.Write([]byte("binary"))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf, w.FormDataContentType()
}

func (f *fixture) register(t *testing.T, username string) {
	t.Helper()
	body, contentType := multipartBody(t,
		map[string]string{
			"username": username,
			"fullName": "Test " + username,
			"email":    username + "@example.com",
			"password": "hunter22",
		},
		map[string]string{"avatar": username + ".png"},
	)
	req := httptest.NewRequest(http.MethodPost, "/register", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func (f *fixture) login(t *testing.T, username string) (access, refresh string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/login",
		strings.NewReader(`{"username":"`+username+`","password":"hunter22"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.AccessToken, resp.RefreshToken
}

func TestRegisterCreatesUser(t *testing.T) {
	f := newFixture(t)
	f.register(t, "alice")

	var user models.User
	require.NoError(t, f.db.Where("username = ?", "alice").First(&user).Error)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.Contains(t, user.Avatar, "alice.png")
	assert.Equal(t, 1, f.media.uploads)
}

func TestRegisterDuplicateUsername(t *testing.T) {
	f := newFixture(t)
	f.register(t, "alice")

	body, contentType := multipartBody(t,
		map[string]string{
			"username": "alice",
			"fullName": "Another Alice",
			"email":    "other@example.com",
			"password": "hunter22",
		},
		map[string]string{"avatar": "a.png"},
	)
	req := httptest.NewRequest(http.MethodPost, "/register", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRegisterMissingAvatar(t *testing.T) {
	f := newFixture(t)

	body, contentType := multipartBody(t, map[string]string{
		"username": "alice",
		"fullName": "Alice",
		"email":    "alice@example.com",
		"password": "hunter22",
	}, nil)
	req := httptest.NewRequest(http.MethodPost, "/register", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginWrongPassword(t *testing.T) {
	f := newFixture(t)
	f.register(t, "alice")

	req := httptest.NewRequest(http.MethodPost, "/login",
		strings.NewReader(`{"username":"alice","password":"wrong"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginSetsCookiesAndSession(t *testing.T) {
	f := newFixture(t)
	f.register(t, "alice")
	access, refresh := f.login(t, "alice")

	assert.NotEmpty(t, access)
	assert.NotEmpty(t, refresh)

	var count int64
	require.NoError(t, f.db.Model(&models.Session{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	// The issued access token opens the private surface.
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+access)
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"username":"alice"`)
}

func TestRefreshRotatesAndDetectsReuse(t *testing.T) {
	f := newFixture(t)
	f.register(t, "alice")
	_, refresh := f.login(t, "alice")

	doRefresh := func(token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/refresh", nil)
		req.AddCookie(&http.Cookie{Name: jwthelp.RefreshCookieName, Value: token})
		rec := httptest.NewRecorder()
		f.e.ServeHTTP(rec, req)
		return rec
	}

	rec := doRefresh(refresh)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var rotated struct {
		RefreshToken string `json:"refresh_token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rotated))
	require.NotEqual(t, refresh, rotated.RefreshToken)

	// Replaying the pre-rotation token is a 401.
	assert.Equal(t, http.StatusUnauthorized, doRefresh(refresh).Code)

	// The current token still works afterwards.
	assert.Equal(t, http.StatusOK, doRefresh(rotated.RefreshToken).Code)
}

func TestRefreshWithoutToken(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/refresh", nil)
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogoutEndsSession(t *testing.T) {
	f := newFixture(t)
	f.register(t, "alice")
	access, refresh := f.login(t, "alice")

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+access)
	req.AddCookie(&http.Cookie{Name: jwthelp.RefreshCookieName, Value: refresh})
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	// The revoked session no longer rotates.
	req = httptest.NewRequest(http.MethodPost, "/refresh", nil)
	req.AddCookie(&http.Cookie{Name: jwthelp.RefreshCookieName, Value: refresh})
	rec = httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestChangePassword(t *testing.T) {
	f := newFixture(t)
	f.register(t, "alice")
	access, _ := f.login(t, "alice")

	req := httptest.NewRequest(http.MethodPost, "/me/password",
		strings.NewReader(`{"current_password":"wrong","new_password":"newpass1"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+access)
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/me/password",
		strings.NewReader(`{"current_password":"hunter22","new_password":"newpass1"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+access)
	rec = httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	// Old password no longer logs in.
	req = httptest.NewRequest(http.MethodPost, "/login",
		strings.NewReader(`{"username":"alice","password":"hunter22"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec = httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
