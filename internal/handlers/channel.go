package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/video_hosting/internal/middleware"
	"github.com/Skotchmaster/video_hosting/internal/service"
)

type ChannelHandler struct {
	Views *service.ViewService
}

// GetChannelProfile serves the public channel card. The viewer may be
// anonymous; IsSubscribed is only meaningful when they are not.
func (h *ChannelHandler) GetChannelProfile(c echo.Context) error {
	username := c.Param("username")
	if username == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "username is required")
	}

	viewerID, _ := middleware.CurrentUserID(c)

	profile, err := h.Views.ChannelProfile(c.Request().Context(), username, viewerID)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, profile)
}

func (h *ChannelHandler) GetWatchHistory(c echo.Context) error {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}

	history, err := h.Views.WatchHistory(c.Request().Context(), userID)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, history)
}
