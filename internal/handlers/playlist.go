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

type PlaylistHandler struct {
	DB *gorm.DB
}

func (h *PlaylistHandler) CreatePlaylist(c echo.Context) error {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}

	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := c.Bind(&req); err != nil || req.Name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name is required")
	}

	playlist := models.Playlist{
		OwnerID:     userID,
		Name:        req.Name,
		Description: req.Description,
	}
	if err := h.DB.WithContext(c.Request().Context()).Create(&playlist).Error; err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusCreated, playlist)
}

func (h *PlaylistHandler) GetMyPlaylists(c echo.Context) error {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}

	var playlists []models.Playlist
	if err := h.DB.WithContext(c.Request().Context()).
		Where("owner_id = ?", userID).Order("id ASC").
		Find(&playlists).Error; err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, playlists)
}

func (h *PlaylistHandler) loadOwnedPlaylist(c echo.Context) (*models.Playlist, error) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}

	playlistID, err := parseIDParam(c, "playlistId")
	if err != nil {
		return nil, err
	}

	var playlist models.Playlist
	if err := h.DB.WithContext(c.Request().Context()).First(&playlist, playlistID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, httpError(service.ErrInvalidReference)
		}
		return nil, httpError(err)
	}
	if playlist.OwnerID != userID {
		return nil, echo.NewHTTPError(http.StatusForbidden, "not the playlist owner")
	}
	return &playlist, nil
}

func (h *PlaylistHandler) AddVideo(c echo.Context) error {
	playlist, err := h.loadOwnedPlaylist(c)
	if err != nil {
		return err
	}

	videoID, err := parseIDParam(c, "videoId")
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	if err := h.DB.WithContext(ctx).First(&models.Video{}, videoID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return httpError(service.ErrInvalidReference)
		}
		return httpError(err)
	}

	entry := models.PlaylistVideo{PlaylistID: playlist.ID, VideoID: videoID}
	if err := h.DB.WithContext(ctx).Create(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return echo.NewHTTPError(http.StatusConflict, "video already in playlist")
		}
		return httpError(err)
	}

	return c.JSON(http.StatusCreated, entry)
}

func (h *PlaylistHandler) RemoveVideo(c echo.Context) error {
	playlist, err := h.loadOwnedPlaylist(c)
	if err != nil {
		return err
	}

	videoID, err := parseIDParam(c, "videoId")
	if err != nil {
		return err
	}

	if err := h.DB.WithContext(c.Request().Context()).
		Where("playlist_id = ? AND video_id = ?", playlist.ID, videoID).
		Delete(&models.PlaylistVideo{}).Error; err != nil {
		return httpError(err)
	}

	return c.NoContent(http.StatusNoContent)
}

func (h *PlaylistHandler) DeletePlaylist(c echo.Context) error {
	playlist, err := h.loadOwnedPlaylist(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	if err := h.DB.WithContext(ctx).
		Where("playlist_id = ?", playlist.ID).Delete(&models.PlaylistVideo{}).Error; err != nil {
		return httpError(err)
	}
	if err := h.DB.WithContext(ctx).Delete(&models.Playlist{}, playlist.ID).Error; err != nil {
		return httpError(err)
	}

	return c.NoContent(http.StatusNoContent)
}
