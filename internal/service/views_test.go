package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/video_hosting/internal/models"
	"github.com/Skotchmaster/video_hosting/internal/service"
	"github.com/Skotchmaster/video_hosting/internal/testutil"
)

func TestSubscriptionCountsFollowToggles(t *testing.T) {
	db := testutil.NewDB(t)
	relations := &service.RelationService{DB: db}
	views := &service.ViewService{DB: db}
	ctx := context.Background()

	viewer := testutil.CreateUser(t, db, "viewer")
	channel := testutil.CreateUser(t, db, "channel")

	count, err := views.SubscriberCount(ctx, channel.ID)
	require.NoError(t, err)
	assert.Zero(t, count)

	_, err = relations.Toggle(ctx, viewer.ID, models.PredicateSubscribesTo, channel.ID)
	require.NoError(t, err)

	count, err = views.SubscriberCount(ctx, channel.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	subscribed, err := views.IsSubscribed(ctx, viewer.ID, channel.ID)
	require.NoError(t, err)
	assert.True(t, subscribed)

	// Toggle off: count and flag drop together.
	_, err = relations.Toggle(ctx, viewer.ID, models.PredicateSubscribesTo, channel.ID)
	require.NoError(t, err)

	count, err = views.SubscriberCount(ctx, channel.ID)
	require.NoError(t, err)
	assert.Zero(t, count)

	subscribed, err = views.IsSubscribed(ctx, viewer.ID, channel.ID)
	require.NoError(t, err)
	assert.False(t, subscribed)
}

func TestChannelProfile(t *testing.T) {
	db := testutil.NewDB(t)
	relations := &service.RelationService{DB: db}
	views := &service.ViewService{DB: db}
	ctx := context.Background()

	channel := testutil.CreateUser(t, db, "channel")
	fan := testutil.CreateUser(t, db, "fan")
	other := testutil.CreateUser(t, db, "other")

	_, err := relations.Toggle(ctx, fan.ID, models.PredicateSubscribesTo, channel.ID)
	require.NoError(t, err)
	_, err = relations.Toggle(ctx, other.ID, models.PredicateSubscribesTo, channel.ID)
	require.NoError(t, err)
	_, err = relations.Toggle(ctx, channel.ID, models.PredicateSubscribesTo, other.ID)
	require.NoError(t, err)

	profile, err := views.ChannelProfile(ctx, "channel", fan.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), profile.SubscriberCount)
	assert.Equal(t, int64(1), profile.SubscribedToCount)
	assert.True(t, profile.IsSubscribed)

	// Anonymous viewer never reads as subscribed.
	profile, err = views.ChannelProfile(ctx, "channel", 0)
	require.NoError(t, err)
	assert.False(t, profile.IsSubscribed)

	_, err = views.ChannelProfile(ctx, "nobody", fan.ID)
	assert.ErrorIs(t, err, service.ErrInvalidReference)
}

func TestSubscriberListings(t *testing.T) {
	db := testutil.NewDB(t)
	relations := &service.RelationService{DB: db}
	views := &service.ViewService{DB: db}
	ctx := context.Background()

	channel := testutil.CreateUser(t, db, "channel")
	a := testutil.CreateUser(t, db, "alice")
	b := testutil.CreateUser(t, db, "bob")

	_, err := relations.Toggle(ctx, a.ID, models.PredicateSubscribesTo, channel.ID)
	require.NoError(t, err)
	_, err = relations.Toggle(ctx, b.ID, models.PredicateSubscribesTo, channel.ID)
	require.NoError(t, err)
	_, err = relations.Toggle(ctx, a.ID, models.PredicateSubscribesTo, b.ID)
	require.NoError(t, err)

	subscribers, err := views.Subscribers(ctx, channel.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, subscribers)

	channels, err := views.SubscribedChannels(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"channel", "bob"}, channels)
}

func TestLikedVideosLazyAndOrdered(t *testing.T) {
	db := testutil.NewDB(t)
	relations := &service.RelationService{DB: db}
	views := &service.ViewService{DB: db}
	ctx := context.Background()

	owner := testutil.CreateUser(t, db, "owner")
	fan := testutil.CreateUser(t, db, "fan")
	first := testutil.CreateVideo(t, db, owner.ID, "first")
	second := testutil.CreateVideo(t, db, owner.ID, "second")
	third := testutil.CreateVideo(t, db, owner.ID, "third")

	for _, v := range []models.Video{third, first, second} {
		_, err := relations.Toggle(ctx, fan.ID, models.PredicateLikesVideo, v.ID)
		require.NoError(t, err)
	}

	var titles []string
	for v, err := range views.LikedVideos(ctx, fan.ID) {
		require.NoError(t, err)
		titles = append(titles, v.Title)
	}
	assert.Equal(t, []string{"third", "first", "second"}, titles, "like order, not video order")

	// A deleted video drops out of the listing even though its edge
	// has not been cleaned up yet.
	require.NoError(t, db.Delete(&models.Video{}, first.ID).Error)
	titles = titles[:0]
	for v, err := range views.LikedVideos(ctx, fan.ID) {
		require.NoError(t, err)
		titles = append(titles, v.Title)
	}
	assert.Equal(t, []string{"third", "second"}, titles)
}

func TestWatchHistorySetSemantics(t *testing.T) {
	db := testutil.NewDB(t)
	views := &service.ViewService{DB: db}
	ctx := context.Background()

	owner := testutil.CreateUser(t, db, "owner")
	watcher := testutil.CreateUser(t, db, "watcher")
	a := testutil.CreateVideo(t, db, owner.ID, "a")
	b := testutil.CreateVideo(t, db, owner.ID, "b")

	require.NoError(t, views.AppendWatchHistory(ctx, watcher.ID, b.ID))
	require.NoError(t, views.AppendWatchHistory(ctx, watcher.ID, a.ID))
	// Rewatching does not duplicate or move the entry.
	require.NoError(t, views.AppendWatchHistory(ctx, watcher.ID, b.ID))

	history, err := views.WatchHistory(ctx, watcher.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "b", history[0].Title)
	assert.Equal(t, "a", history[1].Title)
	assert.Equal(t, "owner", history[0].OwnerUsername)
}
