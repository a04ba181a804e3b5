package models

import (
	"time"
)

type User struct {
	ID           uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string `gorm:"uniqueIndex;not null"     json:"username"`
	Email        string `gorm:"uniqueIndex;not null"     json:"email"`
	FullName     string `gorm:"not null"                 json:"full_name"`
	PasswordHash string `gorm:"not null"                 json:"-"`
	Avatar       string `json:"avatar"`
	CoverImage   string `json:"cover_image"`
}

// Session holds the single currently-valid refresh token for one
// logged-in device. Rotation rewrites TokenHash in place, so a token
// presented with a stale hash is a replayed token.
type Session struct {
	ID        uint   `gorm:"primaryKey"           json:"id"`
	JTI       string `gorm:"uniqueIndex;not null" json:"jti"`
	UserID    uint   `gorm:"index;not null"       json:"user_id"`
	TokenHash string `gorm:"not null"             json:"-"`
	ExpiresAt int64  `gorm:"not null"             json:"expires_at"`
	Revoked   bool   `gorm:"default:false"        json:"revoked"`
}

type Predicate string

const (
	PredicateLikesVideo   Predicate = "likes_video"
	PredicateLikesComment Predicate = "likes_comment"
	PredicateSubscribesTo Predicate = "subscribes_to"
)

// RelationEdge is one directed subject->object edge. The unique index
// over the triple keeps concurrent toggles honest: the row either
// exists or it does not, there is no separate boolean.
type RelationEdge struct {
	ID        uint      `gorm:"primaryKey"                           json:"id"`
	SubjectID uint      `gorm:"not null;uniqueIndex:idx_edge_triple" json:"subject_id"`
	Predicate Predicate `gorm:"not null;uniqueIndex:idx_edge_triple" json:"predicate"`
	ObjectID  uint      `gorm:"not null;uniqueIndex:idx_edge_triple" json:"object_id"`
	CreatedAt time.Time `json:"created_at"`
}

type Video struct {
	ID          uint      `gorm:"primaryKey"     json:"id"`
	OwnerID     uint      `gorm:"index;not null" json:"owner_id"`
	Title       string    `gorm:"not null"       json:"title"`
	Description string    `gorm:"not null"       json:"description"`
	VideoFile   string    `gorm:"not null"       json:"video_file"`
	Thumbnail   string    `json:"thumbnail"`
	Duration    float64   `json:"duration"`
	Views       int64     `gorm:"default:0"      json:"views"`
	IsPublished bool      `gorm:"default:true"   json:"is_published"`
	CreatedAt   time.Time `json:"created_at"`
}

type Comment struct {
	ID        uint      `gorm:"primaryKey"     json:"id"`
	VideoID   uint      `gorm:"index;not null" json:"video_id"`
	OwnerID   uint      `gorm:"index;not null" json:"owner_id"`
	Content   string    `gorm:"not null"       json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// WatchEntry rows are never updated; the autoincrement ID preserves
// first-view order and the unique index gives the set semantics.
type WatchEntry struct {
	ID      uint `gorm:"primaryKey"                                json:"id"`
	UserID  uint `gorm:"not null;uniqueIndex:idx_watch_user_video" json:"user_id"`
	VideoID uint `gorm:"not null;uniqueIndex:idx_watch_user_video" json:"video_id"`
}

type Playlist struct {
	ID          uint      `gorm:"primaryKey"     json:"id"`
	OwnerID     uint      `gorm:"index;not null" json:"owner_id"`
	Name        string    `gorm:"not null"       json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

type PlaylistVideo struct {
	ID         uint `gorm:"primaryKey"                              json:"id"`
	PlaylistID uint `gorm:"not null;uniqueIndex:idx_playlist_video" json:"playlist_id"`
	VideoID    uint `gorm:"not null;uniqueIndex:idx_playlist_video" json:"video_id"`
}
