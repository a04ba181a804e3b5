package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/Skotchmaster/video_hosting/internal/jwthelp"
	"github.com/Skotchmaster/video_hosting/internal/models"
	"github.com/Skotchmaster/video_hosting/internal/service"
)

const (
	ContextUserKey   = "user"
	ContextUserIDKey = "user_id"
)

type Auth struct {
	DB     *gorm.DB
	Tokens *service.TokenService
}

func NewAuth(db *gorm.DB, tokens *service.TokenService) *Auth {
	return &Auth{DB: db, Tokens: tokens}
}

func extractToken(c echo.Context) string {
	if cookie, err := c.Cookie(jwthelp.AccessCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	if h := c.Request().Header.Get(echo.HeaderAuthorization); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}

func (m *Auth) reject(c echo.Context) error {
	c.SetCookie(jwthelp.DeleteCookie(jwthelp.AccessCookieName, "/"))
	c.SetCookie(jwthelp.DeleteCookie(jwthelp.RefreshCookieName, "/"))
	return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
}

// RequireAuth is the gate in front of every authenticated route: no
// token, bad token, or vanished user all reject identically before
// the handler runs, and the rejected client loses its cookies.
func (m *Auth) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := extractToken(c)
		if token == "" {
			return m.reject(c)
		}

		userID, err := m.Tokens.VerifyAccessToken(token)
		if err != nil {
			return m.reject(c)
		}

		var user models.User
		if err := m.DB.WithContext(c.Request().Context()).Where("id = ?", userID).First(&user).Error; err != nil {
			return m.reject(c)
		}

		c.Set(ContextUserKey, &user)
		c.Set(ContextUserIDKey, user.ID)
		return next(c)
	}
}

// OptionalAuth attaches the viewer's identity when a valid token is
// present and lets the request through anonymously otherwise. Used by
// public views that include viewer-dependent flags.
func (m *Auth) OptionalAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := extractToken(c)
		if token == "" {
			return next(c)
		}

		userID, err := m.Tokens.VerifyAccessToken(token)
		if err != nil {
			return next(c)
		}

		var user models.User
		if err := m.DB.WithContext(c.Request().Context()).Where("id = ?", userID).First(&user).Error; err != nil {
			return next(c)
		}

		c.Set(ContextUserKey, &user)
		c.Set(ContextUserIDKey, user.ID)
		return next(c)
	}
}

func CurrentUser(c echo.Context) (*models.User, bool) {
	user, ok := c.Get(ContextUserKey).(*models.User)
	return user, ok
}

func CurrentUserID(c echo.Context) (uint, bool) {
	id, ok := c.Get(ContextUserIDKey).(uint)
	return id, ok
}
