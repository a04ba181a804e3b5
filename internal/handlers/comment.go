package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/Skotchmaster/video_hosting/internal/middleware"
	"github.com/Skotchmaster/video_hosting/internal/models"
	"github.com/Skotchmaster/video_hosting/internal/service"
	"github.com/Skotchmaster/video_hosting/internal/util"
)

type CommentHandler struct {
	DB        *gorm.DB
	Relations *service.RelationService
}

func (h *CommentHandler) CreateComment(c echo.Context) error {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}

	videoID, err := parseIDParam(c, "videoId")
	if err != nil {
		return err
	}

	var req struct {
		Content string `json:"content"`
	}
	if err := c.Bind(&req); err != nil || req.Content == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "content is required")
	}

	ctx := c.Request().Context()
	if err := h.DB.WithContext(ctx).First(&models.Video{}, videoID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return httpError(service.ErrInvalidReference)
		}
		return httpError(err)
	}

	comment := models.Comment{
		VideoID: videoID,
		OwnerID: userID,
		Content: req.Content,
	}
	if err := h.DB.WithContext(ctx).Create(&comment).Error; err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusCreated, comment)
}

func (h *CommentHandler) GetComments(c echo.Context) error {
	videoID, err := parseIDParam(c, "videoId")
	if err != nil {
		return err
	}

	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	var comments []models.Comment
	if err := h.DB.WithContext(c.Request().Context()).
		Where("video_id = ?", videoID).
		Order("id DESC").Offset(offset).Limit(limit).
		Find(&comments).Error; err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, comments)
}

func (h *CommentHandler) loadOwnedComment(c echo.Context) (*models.Comment, error) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}

	commentID, err := parseIDParam(c, "commentId")
	if err != nil {
		return nil, err
	}

	var comment models.Comment
	if err := h.DB.WithContext(c.Request().Context()).First(&comment, commentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, httpError(service.ErrInvalidReference)
		}
		return nil, httpError(err)
	}
	if comment.OwnerID != userID {
		return nil, echo.NewHTTPError(http.StatusForbidden, "not the comment owner")
	}
	return &comment, nil
}

func (h *CommentHandler) UpdateComment(c echo.Context) error {
	comment, err := h.loadOwnedComment(c)
	if err != nil {
		return err
	}

	var req struct {
		Content string `json:"content"`
	}
	if err := c.Bind(&req); err != nil || req.Content == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "content is required")
	}

	if err := h.DB.WithContext(c.Request().Context()).
		Model(comment).Update("content", req.Content).Error; err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, comment)
}

func (h *CommentHandler) DeleteComment(c echo.Context) error {
	comment, err := h.loadOwnedComment(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	if err := h.DB.WithContext(ctx).Delete(&models.Comment{}, comment.ID).Error; err != nil {
		return httpError(err)
	}
	if err := h.Relations.DropEdgesForObject(ctx, models.PredicateLikesComment, comment.ID); err != nil {
		return httpError(err)
	}

	return c.NoContent(http.StatusNoContent)
}
