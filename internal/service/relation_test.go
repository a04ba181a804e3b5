package service_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/video_hosting/internal/models"
	"github.com/Skotchmaster/video_hosting/internal/service"
	"github.com/Skotchmaster/video_hosting/internal/testutil"
)

func TestToggleFlipsPresence(t *testing.T) {
	svc := &service.RelationService{DB: testutil.NewDB(t)}
	ctx := context.Background()

	active, err := svc.Toggle(ctx, 1, models.PredicateLikesVideo, 10)
	require.NoError(t, err)
	assert.True(t, active)

	exists, err := svc.Exists(ctx, 1, models.PredicateLikesVideo, 10)
	require.NoError(t, err)
	assert.True(t, exists)

	active, err = svc.Toggle(ctx, 1, models.PredicateLikesVideo, 10)
	require.NoError(t, err)
	assert.False(t, active)

	exists, err = svc.Exists(ctx, 1, models.PredicateLikesVideo, 10)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestTogglePredicatesAreIndependent(t *testing.T) {
	svc := &service.RelationService{DB: testutil.NewDB(t)}
	ctx := context.Background()

	// Same (subject, object) ids under different predicates are
	// different edges.
	_, err := svc.Toggle(ctx, 1, models.PredicateLikesVideo, 10)
	require.NoError(t, err)
	_, err = svc.Toggle(ctx, 1, models.PredicateLikesComment, 10)
	require.NoError(t, err)
	_, err = svc.Toggle(ctx, 1, models.PredicateSubscribesTo, 10)
	require.NoError(t, err)

	var count int64
	require.NoError(t, svc.DB.Model(&models.RelationEdge{}).Count(&count).Error)
	assert.Equal(t, int64(3), count)
}

func TestToggleParityUnderRepetition(t *testing.T) {
	svc := &service.RelationService{DB: testutil.NewDB(t)}
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		_, err := svc.Toggle(ctx, 5, models.PredicateSubscribesTo, 9)
		require.NoError(t, err)
	}

	exists, err := svc.Exists(ctx, 5, models.PredicateSubscribesTo, 9)
	require.NoError(t, err)
	assert.True(t, exists, "odd number of toggles leaves the edge present")

	_, err = svc.Toggle(ctx, 5, models.PredicateSubscribesTo, 9)
	require.NoError(t, err)

	exists, err = svc.Exists(ctx, 5, models.PredicateSubscribesTo, 9)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestConcurrentTogglesNeverDuplicate(t *testing.T) {
	svc := &service.RelationService{DB: testutil.NewDB(t)}
	ctx := context.Background()

	const n = 10
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Toggle(ctx, 1, models.PredicateLikesVideo, 10)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	var count int64
	require.NoError(t, svc.DB.Model(&models.RelationEdge{}).Count(&count).Error)
	assert.LessOrEqual(t, count, int64(1), "never more than one edge per triple")
}

func TestDropEdgesForObject(t *testing.T) {
	svc := &service.RelationService{DB: testutil.NewDB(t)}
	ctx := context.Background()

	for subject := uint(1); subject <= 3; subject++ {
		_, err := svc.Toggle(ctx, subject, models.PredicateLikesVideo, 10)
		require.NoError(t, err)
	}
	_, err := svc.Toggle(ctx, 1, models.PredicateLikesVideo, 11)
	require.NoError(t, err)

	require.NoError(t, svc.DropEdgesForObject(ctx, models.PredicateLikesVideo, 10))

	var count int64
	require.NoError(t, svc.DB.Model(&models.RelationEdge{}).Count(&count).Error)
	assert.Equal(t, int64(1), count, "edges at other objects survive")
}
