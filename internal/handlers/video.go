package handlers

import (
	"errors"
	"net/http"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/Skotchmaster/video_hosting/internal/logging"
	"github.com/Skotchmaster/video_hosting/internal/middleware"
	"github.com/Skotchmaster/video_hosting/internal/models"
	"github.com/Skotchmaster/video_hosting/internal/mykafka"
	"github.com/Skotchmaster/video_hosting/internal/service"
	"github.com/Skotchmaster/video_hosting/internal/service/search"
	"github.com/Skotchmaster/video_hosting/internal/util"
)

type VideoHandler struct {
	DB        *gorm.DB
	Media     MediaStore
	Producer  *mykafka.Producer
	ES        *elasticsearch.Client
	ESIndex   string
	Relations *service.RelationService
	Views     *service.ViewService
}

func (h *VideoHandler) indexVideo(c echo.Context, video *models.Video) {
	if h.ES == nil {
		return
	}
	if err := search.IndexVideo(c.Request().Context(), h.ES, h.ESIndex, video); err != nil {
		logging.FromContext(c.Request().Context()).Error("video index failed", "video_id", video.ID, "error", err)
	}
}

func (h *VideoHandler) PublishVideo(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "video_publish")

	user, ok := middleware.CurrentUser(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}

	title := c.FormValue("title")
	description := c.FormValue("description")
	if title == "" || description == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "title and description are required")
	}

	var existing models.Video
	if err := h.DB.WithContext(ctx).Where("title = ?", title).First(&existing).Error; err == nil {
		return echo.NewHTTPError(http.StatusConflict, "a video with this title already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return httpError(err)
	}

	videoFile, err := c.FormFile("video")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "video file is required")
	}

	videoURL, err := uploadFormFile(c, h.Media, "videos", videoFile)
	if err != nil {
		l.Error("publish_error", "reason", "video upload failed", "error", err)
		return httpError(err)
	}

	thumbnailURL := ""
	if thumbFile, err := c.FormFile("thumbnail"); err == nil {
		thumbnailURL, err = uploadFormFile(c, h.Media, "thumbnails", thumbFile)
		if err != nil {
			l.Error("publish_error", "reason", "thumbnail upload failed", "error", err)
			return httpError(err)
		}
	}

	video := models.Video{
		OwnerID:     user.ID,
		Title:       title,
		Description: description,
		VideoFile:   videoURL,
		Thumbnail:   thumbnailURL,
		IsPublished: true,
	}
	if err := h.DB.WithContext(ctx).Create(&video).Error; err != nil {
		return httpError(err)
	}

	h.indexVideo(c, &video)
	publish(c, h.Producer, "video_events", uintKey(video.ID), map[string]interface{}{
		"type":     "video_published",
		"video_id": video.ID,
		"owner_id": user.ID,
		"title":    video.Title,
	})

	l.Info("video_published", "video_id", video.ID)
	return c.JSON(http.StatusCreated, video)
}

// GetVideo bumps the view counter and, for a signed-in viewer,
// records the watch. Repeat views neither duplicate nor reorder the
// history entry.
func (h *VideoHandler) GetVideo(c echo.Context) error {
	videoID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	var video models.Video
	if err := h.DB.WithContext(ctx).First(&video, videoID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return httpError(service.ErrInvalidReference)
		}
		return httpError(err)
	}

	if err := h.DB.WithContext(ctx).Model(&video).
		UpdateColumn("views", gorm.Expr("views + 1")).Error; err != nil {
		return httpError(err)
	}

	if viewerID, ok := middleware.CurrentUserID(c); ok {
		if err := h.Views.AppendWatchHistory(ctx, viewerID, video.ID); err != nil {
			return httpError(err)
		}
	}

	return c.JSON(http.StatusOK, video)
}

func (h *VideoHandler) GetVideos(c echo.Context) error {
	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	ctx := c.Request().Context()

	var total int64
	if err := h.DB.WithContext(ctx).Model(&models.Video{}).
		Where("is_published = ?", true).Count(&total).Error; err != nil {
		return httpError(err)
	}

	var items []models.Video
	if err := h.DB.WithContext(ctx).Model(&models.Video{}).
		Where("is_published = ?", true).
		Order("id ASC").Offset(offset).Limit(limit).
		Find(&items).Error; err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"data": items,
		"meta": map[string]any{
			"page":        page,
			"size":        limit,
			"total":       total,
			"total_pages": (total + int64(limit) - 1) / int64(limit),
			"has_prev":    page > 1,
			"has_next":    int64(offset+limit) < total,
		},
	})
}

func (h *VideoHandler) loadOwnedVideo(c echo.Context) (*models.Video, error) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}

	videoID, err := parseIDParam(c, "id")
	if err != nil {
		return nil, err
	}

	var video models.Video
	if err := h.DB.WithContext(c.Request().Context()).First(&video, videoID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, httpError(service.ErrInvalidReference)
		}
		return nil, httpError(err)
	}
	if video.OwnerID != userID {
		return nil, echo.NewHTTPError(http.StatusForbidden, "not the video owner")
	}
	return &video, nil
}

func (h *VideoHandler) UpdateThumbnail(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "video_update_thumbnail")

	video, err := h.loadOwnedVideo(c)
	if err != nil {
		return err
	}

	thumbFile, err := c.FormFile("thumbnail")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "thumbnail is required")
	}

	url, err := uploadFormFile(c, h.Media, "thumbnails", thumbFile)
	if err != nil {
		l.Error("thumbnail upload failed", "error", err)
		return httpError(err)
	}

	old := video.Thumbnail
	if err := h.DB.WithContext(ctx).Model(video).Update("thumbnail", url).Error; err != nil {
		return httpError(err)
	}

	if old != "" {
		if err := h.Media.Delete(ctx, old); err != nil {
			l.Error("old thumbnail delete failed", "url", old, "error", err)
		}
	}

	h.indexVideo(c, video)
	return c.JSON(http.StatusOK, video)
}

func (h *VideoHandler) DeleteVideo(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "video_delete")

	video, err := h.loadOwnedVideo(c)
	if err != nil {
		return err
	}

	if err := h.DB.WithContext(ctx).Delete(&models.Video{}, video.ID).Error; err != nil {
		return httpError(err)
	}
	if err := h.DB.WithContext(ctx).Where("video_id = ?", video.ID).Delete(&models.Comment{}).Error; err != nil {
		return httpError(err)
	}
	if err := h.Relations.DropEdgesForObject(ctx, models.PredicateLikesVideo, video.ID); err != nil {
		return httpError(err)
	}

	for _, url := range []string{video.VideoFile, video.Thumbnail} {
		if err := h.Media.Delete(ctx, url); err != nil {
			l.Error("media delete failed", "url", url, "error", err)
		}
	}

	if h.ES != nil {
		if err := search.DeleteVideo(ctx, h.ES, h.ESIndex, video.ID); err != nil {
			l.Error("video deindex failed", "video_id", video.ID, "error", err)
		}
	}

	publish(c, h.Producer, "video_events", uintKey(video.ID), map[string]interface{}{
		"type":     "video_deleted",
		"video_id": video.ID,
		"owner_id": video.OwnerID,
	})

	l.Info("video_deleted", "video_id", video.ID)
	return c.NoContent(http.StatusNoContent)
}
