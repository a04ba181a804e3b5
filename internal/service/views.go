package service

import (
	"context"
	"errors"
	"iter"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/video_hosting/internal/models"
)

// ViewService is the read side: derived counts and membership flags
// computed straight from the edge table the toggle engine mutates.
// Nothing here is denormalized, so nothing here can drift.
type ViewService struct {
	DB *gorm.DB
}

type ChannelProfile struct {
	ID                uint   `json:"id"`
	Username          string `json:"username"`
	FullName          string `json:"full_name"`
	Email             string `json:"email"`
	Avatar            string `json:"avatar"`
	CoverImage        string `json:"cover_image"`
	SubscriberCount   int64  `json:"subscriber_count"`
	SubscribedToCount int64  `json:"subscribed_to_count"`
	IsSubscribed      bool   `json:"is_subscribed"`
}

type WatchedVideo struct {
	models.Video
	OwnerUsername string `json:"owner_username"`
	OwnerFullName string `json:"owner_full_name"`
	OwnerAvatar   string `json:"owner_avatar"`
}

func (s *ViewService) SubscriberCount(ctx context.Context, channelID uint) (int64, error) {
	var count int64
	err := s.DB.WithContext(ctx).Model(&models.RelationEdge{}).
		Where("predicate = ? AND object_id = ?", models.PredicateSubscribesTo, channelID).
		Count(&count).Error
	return count, err
}

func (s *ViewService) SubscribedToCount(ctx context.Context, subjectID uint) (int64, error) {
	var count int64
	err := s.DB.WithContext(ctx).Model(&models.RelationEdge{}).
		Where("predicate = ? AND subject_id = ?", models.PredicateSubscribesTo, subjectID).
		Count(&count).Error
	return count, err
}

func (s *ViewService) IsSubscribed(ctx context.Context, viewerID, channelID uint) (bool, error) {
	var count int64
	err := s.DB.WithContext(ctx).Model(&models.RelationEdge{}).
		Where("predicate = ? AND subject_id = ? AND object_id = ?",
			models.PredicateSubscribesTo, viewerID, channelID).
		Count(&count).Error
	return count > 0, err
}

// ChannelProfile assembles the public channel card. viewerID 0 means
// an anonymous viewer; IsSubscribed stays false.
func (s *ViewService) ChannelProfile(ctx context.Context, username string, viewerID uint) (*ChannelProfile, error) {
	var user models.User
	if err := s.DB.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidReference
		}
		return nil, err
	}

	subscribers, err := s.SubscriberCount(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	subscribedTo, err := s.SubscribedToCount(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	subscribed := false
	if viewerID != 0 {
		subscribed, err = s.IsSubscribed(ctx, viewerID, user.ID)
		if err != nil {
			return nil, err
		}
	}

	return &ChannelProfile{
		ID:                user.ID,
		Username:          user.Username,
		FullName:          user.FullName,
		Email:             user.Email,
		Avatar:            user.Avatar,
		CoverImage:        user.CoverImage,
		SubscriberCount:   subscribers,
		SubscribedToCount: subscribedTo,
		IsSubscribed:      subscribed,
	}, nil
}

// Subscribers lists usernames subscribed to the channel.
func (s *ViewService) Subscribers(ctx context.Context, channelID uint) ([]string, error) {
	var names []string
	err := s.DB.WithContext(ctx).Model(&models.RelationEdge{}).
		Joins("JOIN users ON users.id = relation_edges.subject_id").
		Where("relation_edges.predicate = ? AND relation_edges.object_id = ?",
			models.PredicateSubscribesTo, channelID).
		Order("relation_edges.id ASC").
		Pluck("users.username", &names).Error
	return names, err
}

// SubscribedChannels lists usernames of channels the subject follows.
func (s *ViewService) SubscribedChannels(ctx context.Context, subjectID uint) ([]string, error) {
	var names []string
	err := s.DB.WithContext(ctx).Model(&models.RelationEdge{}).
		Joins("JOIN users ON users.id = relation_edges.object_id").
		Where("relation_edges.predicate = ? AND relation_edges.subject_id = ?",
			models.PredicateSubscribesTo, subjectID).
		Order("relation_edges.id ASC").
		Pluck("users.username", &names).Error
	return names, err
}

// LikedVideos yields the subject's liked videos lazily, in like order.
// The inner join drops likes whose video has since been deleted. Each
// range over the sequence reopens the query, so it is restartable.
func (s *ViewService) LikedVideos(ctx context.Context, subjectID uint) iter.Seq2[models.Video, error] {
	return func(yield func(models.Video, error) bool) {
		rows, err := s.DB.WithContext(ctx).Model(&models.Video{}).
			Joins("JOIN relation_edges ON relation_edges.object_id = videos.id").
			Where("relation_edges.predicate = ? AND relation_edges.subject_id = ?",
				models.PredicateLikesVideo, subjectID).
			Order("relation_edges.id ASC").
			Rows()
		if err != nil {
			yield(models.Video{}, err)
			return
		}
		defer rows.Close()

		for rows.Next() {
			var v models.Video
			if err := s.DB.ScanRows(rows, &v); err != nil {
				yield(models.Video{}, err)
				return
			}
			if !yield(v, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(models.Video{}, err)
		}
	}
}

// AppendWatchHistory records that the user watched the video. Set
// semantics: a repeat view neither duplicates nor reorders the entry.
func (s *ViewService) AppendWatchHistory(ctx context.Context, userID, videoID uint) error {
	entry := models.WatchEntry{UserID: userID, VideoID: videoID}
	return s.DB.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&entry).Error
}

// WatchHistory returns the user's watched videos in first-view order,
// each joined with its owner's public fields.
func (s *ViewService) WatchHistory(ctx context.Context, userID uint) ([]WatchedVideo, error) {
	var watched []WatchedVideo
	err := s.DB.WithContext(ctx).Model(&models.Video{}).
		Select("videos.*, users.username AS owner_username, users.full_name AS owner_full_name, users.avatar AS owner_avatar").
		Joins("JOIN watch_entries ON watch_entries.video_id = videos.id").
		Joins("JOIN users ON users.id = videos.owner_id").
		Where("watch_entries.user_id = ?", userID).
		Order("watch_entries.id ASC").
		Scan(&watched).Error
	return watched, err
}
