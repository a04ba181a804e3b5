package handlers

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/Skotchmaster/video_hosting/internal/logging"
	"github.com/Skotchmaster/video_hosting/internal/mediastore"
	"github.com/Skotchmaster/video_hosting/internal/mykafka"
	"github.com/Skotchmaster/video_hosting/internal/service"
	"github.com/Skotchmaster/video_hosting/internal/tokens"
)

// MediaStore is the slice of the blob-store collaborator the handlers
// actually use.
type MediaStore interface {
	Upload(ctx context.Context, kind, filename, contentType string, body io.Reader) (string, error)
	Delete(ctx context.Context, fileURL string) error
}

var _ MediaStore = (*mediastore.Store)(nil)

// httpError maps the sentinel taxonomy onto standardized statuses:
// 400 bad input, 401 auth, 404 missing target, 409 conflict, 502
// upstream. ErrTokenReused deliberately reads as a plain 401.
func httpError(err error) error {
	switch {
	case errors.Is(err, tokens.ErrTokenInvalid),
		errors.Is(err, tokens.ErrTokenExpired),
		errors.Is(err, service.ErrTokenReused):
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
	case errors.Is(err, service.ErrInvalidReference):
		return echo.NewHTTPError(http.StatusNotFound, "target does not exist")
	case errors.Is(err, gorm.ErrRecordNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return echo.NewHTTPError(http.StatusConflict, "already exists")
	case errors.Is(err, mediastore.ErrUnavailable):
		return echo.NewHTTPError(http.StatusBadGateway, "media storage unavailable")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}

func parseIDParam(c echo.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return uint(id), nil
}

func uintKey(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}

func uploadFormFile(c echo.Context, media MediaStore, kind string, fileHeader *multipart.FileHeader) (string, error) {
	src, err := fileHeader.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()
	return media.Upload(c.Request().Context(), kind, fileHeader.Filename, fileHeader.Header.Get("Content-Type"), src)
}

func publish(c echo.Context, producer *mykafka.Producer, topic, key string, event map[string]interface{}) {
	if producer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := producer.PublishEvent(ctx, topic, key, event); err != nil {
		logging.FromContext(c.Request().Context()).Error("kafka publish failed", "topic", topic, "error", err)
	}
}
