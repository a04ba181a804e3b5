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

type LikeHandler struct {
	DB        *gorm.DB
	Relations *service.RelationService
	Views     *service.ViewService
}

// toggleLike validates the target exists (the engine itself does not)
// and flips the edge.
func (h *LikeHandler) toggleLike(c echo.Context, predicate models.Predicate, target interface{}, targetID uint) error {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}

	ctx := c.Request().Context()
	if err := h.DB.WithContext(ctx).First(target, targetID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return httpError(service.ErrInvalidReference)
		}
		return httpError(err)
	}

	active, err := h.Relations.Toggle(ctx, userID, predicate, targetID)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, echo.Map{"active": active})
}

func (h *LikeHandler) ToggleVideoLike(c echo.Context) error {
	videoID, err := parseIDParam(c, "videoId")
	if err != nil {
		return err
	}
	return h.toggleLike(c, models.PredicateLikesVideo, &models.Video{}, videoID)
}

func (h *LikeHandler) ToggleCommentLike(c echo.Context) error {
	commentID, err := parseIDParam(c, "commentId")
	if err != nil {
		return err
	}
	return h.toggleLike(c, models.PredicateLikesComment, &models.Comment{}, commentID)
}

func (h *LikeHandler) GetLikedVideos(c echo.Context) error {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}

	videos := []models.Video{}
	for video, err := range h.Views.LikedVideos(c.Request().Context(), userID) {
		if err != nil {
			return httpError(err)
		}
		videos = append(videos, video)
	}

	return c.JSON(http.StatusOK, videos)
}
