package testutil

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Skotchmaster/video_hosting/internal/models"
)

// NewDB opens a fresh in-memory database with the full schema.
// TranslateError matches production; MaxOpenConns(1) is required
// because each sqlite :memory: connection is its own database.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Session{},
		&models.RelationEdge{},
		&models.Video{},
		&models.Comment{},
		&models.WatchEntry{},
		&models.Playlist{},
		&models.PlaylistVideo{},
	))
	return db
}

func CreateUser(t *testing.T, db *gorm.DB, username string) models.User {
	t.Helper()
	user := models.User{
		Username:     username,
		Email:        username + "@example.com",
		FullName:     "Test " + username,
		PasswordHash: "x",
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func CreateVideo(t *testing.T, db *gorm.DB, ownerID uint, title string) models.Video {
	t.Helper()
	video := models.Video{
		OwnerID:     ownerID,
		Title:       title,
		Description: "about " + title,
		VideoFile:   "https://cdn.example.com/videos/" + title + ".mp4",
		IsPublished: true,
	}
	require.NoError(t, db.Create(&video).Error)
	return video
}
