package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/Skotchmaster/video_hosting/internal/middleware"
	"github.com/Skotchmaster/video_hosting/internal/models"
	"github.com/Skotchmaster/video_hosting/internal/service"
)

type SubscriptionHandler struct {
	DB        *gorm.DB
	Relations *service.RelationService
	Views     *service.ViewService
}

func (h *SubscriptionHandler) ToggleSubscription(c echo.Context) error {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}

	channelID, err := parseIDParam(c, "channelId")
	if err != nil {
		return err
	}
	if channelID == userID {
		return echo.NewHTTPError(http.StatusBadRequest, "cannot subscribe to yourself")
	}

	ctx := c.Request().Context()
	if err := h.DB.WithContext(ctx).First(&models.User{}, channelID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return httpError(service.ErrInvalidReference)
		}
		return httpError(err)
	}

	active, err := h.Relations.Toggle(ctx, userID, models.PredicateSubscribesTo, channelID)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, echo.Map{"active": active})
}

func (h *SubscriptionHandler) GetChannelSubscribers(c echo.Context) error {
	channelID, err := parseIDParam(c, "channelId")
	if err != nil {
		return err
	}

	subscribers, err := h.Views.Subscribers(c.Request().Context(), channelID)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"count":       len(subscribers),
		"subscribers": subscribers,
	})
}

func (h *SubscriptionHandler) GetSubscribedChannels(c echo.Context) error {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}

	channels, err := h.Views.SubscribedChannels(c.Request().Context(), userID)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"count":    len(channels),
		"channels": channels,
	})
}
