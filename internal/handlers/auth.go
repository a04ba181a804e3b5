package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/Skotchmaster/video_hosting/internal/hash"
	"github.com/Skotchmaster/video_hosting/internal/jwthelp"
	"github.com/Skotchmaster/video_hosting/internal/logging"
	"github.com/Skotchmaster/video_hosting/internal/middleware"
	"github.com/Skotchmaster/video_hosting/internal/models"
	"github.com/Skotchmaster/video_hosting/internal/mykafka"
	"github.com/Skotchmaster/video_hosting/internal/service"
)

type AuthHandler struct {
	DB       *gorm.DB
	Tokens   *service.TokenService
	Media    MediaStore
	Producer *mykafka.Producer
}

func (h *AuthHandler) setTokenCookies(c echo.Context, pair *service.TokenPair) {
	c.SetCookie(jwthelp.CreateCookie(jwthelp.AccessCookieName, pair.AccessToken, "/", pair.AccessExp))
	c.SetCookie(jwthelp.CreateCookie(jwthelp.RefreshCookieName, pair.RefreshToken, "/", pair.RefreshExp))
}

func clearTokenCookies(c echo.Context) {
	c.SetCookie(jwthelp.DeleteCookie(jwthelp.AccessCookieName, "/"))
	c.SetCookie(jwthelp.DeleteCookie(jwthelp.RefreshCookieName, "/"))
}

func (h *AuthHandler) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_register")

	username := c.FormValue("username")
	fullName := c.FormValue("fullName")
	email := c.FormValue("email")
	password := c.FormValue("password")
	if username == "" || fullName == "" || email == "" || password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "all fields are required")
	}

	avatarFile, err := c.FormFile("avatar")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "avatar file is required")
	}

	avatarURL, err := uploadFormFile(c, h.Media, "images", avatarFile)
	if err != nil {
		l.Error("register_error", "reason", "avatar upload failed", "error", err)
		return httpError(err)
	}

	coverURL := ""
	if coverFile, err := c.FormFile("coverImage"); err == nil {
		coverURL, err = uploadFormFile(c, h.Media, "images", coverFile)
		if err != nil {
			l.Error("register_error", "reason", "cover upload failed", "error", err)
			return httpError(err)
		}
	}

	pwHash, err := hash.HashPassword(password)
	if err != nil {
		return httpError(err)
	}

	user := models.User{
		Username:     username,
		Email:        email,
		FullName:     fullName,
		PasswordHash: pwHash,
		Avatar:       avatarURL,
		CoverImage:   coverURL,
	}
	if err := h.DB.WithContext(ctx).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			l.Warn("register_error", "status", 409, "reason", "username or email taken")
			return echo.NewHTTPError(http.StatusConflict, "user with this username or email already exists")
		}
		return httpError(err)
	}

	publish(c, h.Producer, "user_events", user.Username, map[string]interface{}{
		"type":     "user_registered",
		"user_id":  user.ID,
		"username": user.Username,
	})

	l.Info("user_registered", "user_id", user.ID)
	return c.JSON(http.StatusCreated, user)
}

func (h *AuthHandler) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_login")

	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Username == "" && req.Email == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "username or email is required")
	}

	var user models.User
	err := h.DB.WithContext(ctx).
		Where("username = ? OR email = ?", req.Username, req.Email).
		First(&user).Error
	if err != nil {
		l.Warn("login_failed", "status", 401, "reason", "unknown user")
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	}

	if !hash.CheckPassword(user.PasswordHash, req.Password) {
		l.Warn("login_failed", "status", 401, "reason", "bad password", "user_id", user.ID)
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	}

	pair, err := h.Tokens.IssueTokenPair(ctx, user.ID)
	if err != nil {
		l.Error("login_failed", "status", 500, "error", err)
		return httpError(err)
	}

	h.setTokenCookies(c, pair)

	publish(c, h.Producer, "user_events", user.Username, map[string]interface{}{
		"type":     "user_logged_in",
		"user_id":  user.ID,
		"username": user.Username,
	})

	l.Info("login_successful", "user_id", user.ID)
	return c.JSON(http.StatusOK, echo.Map{
		"user":          user,
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
	})
}

func (h *AuthHandler) Refresh(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_refresh")

	presented := ""
	if cookie, err := c.Cookie(jwthelp.RefreshCookieName); err == nil {
		presented = cookie.Value
	}
	if presented == "" {
		var req struct {
			RefreshToken string `json:"refresh_token"`
		}
		if err := c.Bind(&req); err == nil {
			presented = req.RefreshToken
		}
	}
	if presented == "" {
		clearTokenCookies(c)
		return echo.NewHTTPError(http.StatusUnauthorized, "refresh token missing")
	}

	pair, err := h.Tokens.Rotate(ctx, presented)
	if err != nil {
		clearTokenCookies(c)
		l.Warn("refresh_failed", "status", 401, "error", err)
		return httpError(err)
	}

	h.setTokenCookies(c, pair)
	return c.JSON(http.StatusOK, echo.Map{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
	})
}

func (h *AuthHandler) LogOut(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_logout")

	if cookie, err := c.Cookie(jwthelp.RefreshCookieName); err == nil && cookie.Value != "" {
		if err := h.Tokens.RevokeByToken(ctx, cookie.Value); err != nil {
			l.Error("logout_error", "reason", "cannot revoke session", "error", err)
		}
	}

	clearTokenCookies(c)
	l.Info("logout_successful")
	return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}

func (h *AuthHandler) ChangePassword(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_change_password")

	user, ok := middleware.CurrentUser(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}

	var req struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "all fields are required")
	}

	if !hash.CheckPassword(user.PasswordHash, req.CurrentPassword) {
		l.Warn("change_password_failed", "status", 401, "user_id", user.ID)
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid current password")
	}

	pwHash, err := hash.HashPassword(req.NewPassword)
	if err != nil {
		return httpError(err)
	}
	if err := h.DB.WithContext(ctx).Model(user).Update("password_hash", pwHash).Error; err != nil {
		return httpError(err)
	}

	l.Info("password_changed", "user_id", user.ID)
	return c.JSON(http.StatusOK, echo.Map{"message": "password changed"})
}

func (h *AuthHandler) CurrentUser(c echo.Context) error {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}
	return c.JSON(http.StatusOK, user)
}

func (h *AuthHandler) UpdateAccount(c echo.Context) error {
	ctx := c.Request().Context()

	user, ok := middleware.CurrentUser(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}

	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		FullName string `json:"full_name"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Username == "" && req.Email == "" && req.FullName == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "at least one field is required")
	}

	updates := map[string]interface{}{}
	if req.Username != "" {
		updates["username"] = req.Username
	}
	if req.Email != "" {
		updates["email"] = req.Email
	}
	if req.FullName != "" {
		updates["full_name"] = req.FullName
	}

	if err := h.DB.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return echo.NewHTTPError(http.StatusConflict, "username or email already taken")
		}
		return httpError(err)
	}

	return c.JSON(http.StatusOK, user)
}

func (h *AuthHandler) UpdateAvatar(c echo.Context) error {
	return h.updateImage(c, "avatar")
}

func (h *AuthHandler) UpdateCoverImage(c echo.Context) error {
	return h.updateImage(c, "coverImage")
}

func (h *AuthHandler) updateImage(c echo.Context, field string) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_update_"+field)

	user, ok := middleware.CurrentUser(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}

	fileHeader, err := c.FormFile(field)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, field+" is required")
	}

	url, err := uploadFormFile(c, h.Media, "images", fileHeader)
	if err != nil {
		l.Error("upload_failed", "error", err)
		return httpError(err)
	}

	column, old := "avatar", user.Avatar
	if field == "coverImage" {
		column, old = "cover_image", user.CoverImage
	}

	if err := h.DB.WithContext(ctx).Model(user).Update(column, url).Error; err != nil {
		return httpError(err)
	}

	if old != "" {
		if err := h.Media.Delete(ctx, old); err != nil {
			l.Error("old image delete failed", "url", old, "error", err)
		}
	}

	return c.JSON(http.StatusOK, user)
}
