package engagement_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"gorm.io/gorm"

	"github.com/oggyb/codev-api/internal/app"
	"github.com/oggyb/codev-api/internal/cache"
	"github.com/oggyb/codev-api/internal/config"
	"github.com/oggyb/codev-api/internal/db"
	"github.com/oggyb/codev-api/internal/db/dbtest"
	svcErr "github.com/oggyb/codev-api/internal/errors"
	"github.com/oggyb/codev-api/internal/events"
	"github.com/oggyb/codev-api/internal/logger"
	"github.com/oggyb/codev-api/internal/service/engagement"
	"github.com/oggyb/codev-api/internal/view"
)

//
// Test helpers
//

type fixture struct {
	svc      *engagement.Service
	gdb      *gorm.DB
	cache    *cache.RedisCache
	recorder *events.Recorder

	challenge *db.Challenge
	author    *db.User
	bob       *db.User
	carol     *db.User
	solution  *db.Solution
}

// setupService spins up an in-memory SQLite DB and a miniredis, and seeds:
//   - author, bob, carol (all active)
//   - one challenge with one solution by author, no likes yet
func setupService(t *testing.T) fixture {
	t.Helper()
	gdb := dbtest.New(t)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	cfg := &config.Config{}
	cfg.Redis.Addr = mr.Addr()
	cfg.Redis.LockTTL = 5 * time.Second
	redisCache := cache.NewRedisCache(cfg)
	t.Cleanup(func() { _ = redisCache.Close() })

	rec := &events.Recorder{}
	appCtx := app.New(cfg, gdb, redisCache, rec, logger.Nop())

	f := fixture{
		svc:      engagement.NewEngagementService(appCtx),
		gdb:      gdb,
		cache:    redisCache,
		recorder: rec,
		author:   dbtest.User(t, gdb, "author"),
		bob:      dbtest.User(t, gdb, "bob"),
		carol:    dbtest.User(t, gdb, "carol"),
	}
	f.challenge = dbtest.Challenge(t, gdb, f.author.ID, "Todo app")
	f.solution = dbtest.Solution(t, gdb, f.challenge.ID, f.author.ID)
	return f
}

func (f fixture) list(t *testing.T, viewer uuid.UUID) []view.Solution {
	t.Helper()
	got, err := f.svc.ListSolutionsForChallenge(context.Background(), engagement.ListQuery{
		ChallengeID: f.challenge.ID,
		ViewerID:    viewer,
		Page:        0,
		Size:        10,
	})
	require.NoError(t, err)
	return got
}

//
// Tests
//

// TestLikeUnlikeRestoresCount checks addLike followed by removeLike leaves
// likes where it started.
func TestLikeUnlikeRestoresCount(t *testing.T) {
	ctx := context.Background()
	f := setupService(t)

	before := f.list(t, f.bob.ID)
	require.Len(t, before, 1)
	assert.EqualValues(t, 0, before[0].Likes)
	assert.False(t, before[0].Liked)

	like, err := f.svc.AddLike(ctx, f.solution.ID, f.bob.ID)
	require.NoError(t, err)
	assert.True(t, like.Liked)

	during := f.list(t, f.bob.ID)
	assert.EqualValues(t, 1, during[0].Likes)
	assert.True(t, during[0].Liked)

	like, err = f.svc.RemoveLike(ctx, f.solution.ID, f.bob.ID)
	require.NoError(t, err)
	assert.False(t, like.Liked)

	after := f.list(t, f.bob.ID)
	assert.EqualValues(t, 0, after[0].Likes)
	assert.False(t, after[0].Liked)

	assert.Equal(t, []events.Type{events.SolutionLiked, events.SolutionUnliked}, f.recorder.Types())
}

// TestAuthorSelfLike: the author's own like counts toward likes but never
// shows as liked to the author.
func TestAuthorSelfLike(t *testing.T) {
	ctx := context.Background()
	f := setupService(t)

	for _, u := range []*db.User{f.bob, f.carol, f.author} {
		_, err := f.svc.AddLike(ctx, f.solution.ID, u.ID)
		require.NoError(t, err)
	}

	asAuthor := f.list(t, f.author.ID)
	require.Len(t, asAuthor, 1)
	assert.EqualValues(t, 3, asAuthor[0].Likes)
	assert.False(t, asAuthor[0].Liked)

	asBob := f.list(t, f.bob.ID)
	assert.EqualValues(t, 3, asBob[0].Likes)
	assert.True(t, asBob[0].Liked)

	n, err := f.svc.CountLikes(ctx, f.solution.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
}

func TestAddLikeTwiceFails(t *testing.T) {
	ctx := context.Background()
	f := setupService(t)

	_, err := f.svc.AddLike(ctx, f.solution.ID, f.bob.ID)
	require.NoError(t, err)

	_, err = f.svc.AddLike(ctx, f.solution.ID, f.bob.ID)
	require.ErrorIs(t, err, svcErr.ErrLikeNotAccepted)
	assert.Equal(t, svcErr.KindConflict, svcErr.KindOf(err))
	assert.EqualValues(t, 1, f.list(t, f.bob.ID)[0].Likes)
}

func TestRemoveLikeWithoutLikeFails(t *testing.T) {
	f := setupService(t)
	_, err := f.svc.RemoveLike(context.Background(), f.solution.ID, f.bob.ID)
	assert.ErrorIs(t, err, svcErr.ErrLikeNotAccepted)
	assert.Empty(t, f.recorder.Events())
}

func TestAddLikeRejected(t *testing.T) {
	ctx := context.Background()
	f := setupService(t)

	_, err := f.svc.AddLike(ctx, uuid.New(), f.bob.ID)
	assert.ErrorIs(t, err, svcErr.ErrNotFound)

	_, err = f.svc.AddLike(ctx, f.solution.ID, uuid.New())
	assert.ErrorIs(t, err, svcErr.ErrNotFound)

	dbtest.Deactivate(t, f.gdb, &db.User{}, f.carol.ID)
	_, err = f.svc.AddLike(ctx, f.solution.ID, f.carol.ID)
	assert.ErrorIs(t, err, svcErr.ErrUserDeactivated)
}

// TestAddLike_LockHeld simulates a concurrent toggle of the same pair on
// another instance.
func TestAddLike_LockHeld(t *testing.T) {
	ctx := context.Background()
	f := setupService(t)

	release, ok, err := f.cache.TryLock(ctx, f.cache.KeyForLikeToggle(f.solution.ID, f.bob.ID))
	require.NoError(t, err)
	require.True(t, ok)

	_, err = f.svc.AddLike(ctx, f.solution.ID, f.bob.ID)
	require.ErrorIs(t, err, svcErr.ErrLikeToggleInProgress)
	assert.NotErrorIs(t, err, svcErr.ErrLikeNotAccepted)
	assert.Equal(t, codes.Aborted, status.Code(svcErr.Map(err)))

	_, err = f.svc.RemoveLike(ctx, f.solution.ID, f.bob.ID)
	assert.ErrorIs(t, err, svcErr.ErrLikeToggleInProgress)

	// other pairs are unaffected
	_, err = f.svc.AddLike(ctx, f.solution.ID, f.carol.ID)
	require.NoError(t, err)

	release()
	_, err = f.svc.AddLike(ctx, f.solution.ID, f.bob.ID)
	require.NoError(t, err)
}

func TestListSolutions_Pagination(t *testing.T) {
	ctx := context.Background()
	f := setupService(t)
	dbtest.Solution(t, f.gdb, f.challenge.ID, f.bob.ID)
	dbtest.Solution(t, f.gdb, f.challenge.ID, f.carol.ID)

	seen := map[uuid.UUID]bool{}
	for page := 0; page < 3; page++ {
		got, err := f.svc.ListSolutionsForChallenge(ctx, engagement.ListQuery{
			ChallengeID: f.challenge.ID, ViewerID: f.bob.ID, Page: page, Size: 1,
		})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.False(t, seen[got[0].ID], "pages must not overlap")
		seen[got[0].ID] = true
	}

	got, err := f.svc.ListSolutionsForChallenge(ctx, engagement.ListQuery{
		ChallengeID: f.challenge.ID, Page: 3, Size: 1,
	})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestListSolutions_MostLiked(t *testing.T) {
	ctx := context.Background()
	f := setupService(t)
	popular := dbtest.Solution(t, f.gdb, f.challenge.ID, f.bob.ID)
	dbtest.Like(t, f.gdb, popular.ID, f.author.ID)
	dbtest.Like(t, f.gdb, popular.ID, f.carol.ID)
	dbtest.Like(t, f.gdb, f.solution.ID, f.carol.ID)

	got, err := f.svc.ListSolutionsForChallenge(ctx, engagement.ListQuery{
		ChallengeID: f.challenge.ID, ViewerID: f.carol.ID, Page: 0, Size: 10, Order: "most_liked",
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, popular.ID, got[0].ID)
	assert.EqualValues(t, 2, got[0].Likes)
	assert.Equal(t, "bob", got[0].Author.Name)
	assert.True(t, got[0].Liked)
	assert.EqualValues(t, 1, got[1].Likes)
}

func TestListSolutions_InvalidPaging(t *testing.T) {
	ctx := context.Background()
	f := setupService(t)

	_, err := f.svc.ListSolutionsForChallenge(ctx, engagement.ListQuery{ChallengeID: f.challenge.ID, Page: -1, Size: 10})
	assert.ErrorIs(t, err, svcErr.ErrInvalidArgument)

	_, err = f.svc.ListSolutionsForChallenge(ctx, engagement.ListQuery{ChallengeID: f.challenge.ID, Page: 0, Size: 0})
	assert.ErrorIs(t, err, svcErr.ErrInvalidArgument)

	_, err = f.svc.ListSolutionsForChallenge(ctx, engagement.ListQuery{ChallengeID: f.challenge.ID, Page: 0, Size: 5, Order: "random"})
	assert.ErrorIs(t, err, svcErr.ErrInvalidArgument)
}

// Without Redis the like toggle still works; the table key is the guard.
func TestAddLike_WithoutRedis(t *testing.T) {
	ctx := context.Background()
	gdb := dbtest.New(t)
	author := dbtest.User(t, gdb, "author")
	fan := dbtest.User(t, gdb, "fan")
	challenge := dbtest.Challenge(t, gdb, author.ID, "Todo app")
	solution := dbtest.Solution(t, gdb, challenge.ID, author.ID)

	svc := engagement.NewEngagementService(app.New(nil, gdb, nil, nil, logger.Nop()))
	_, err := svc.AddLike(ctx, solution.ID, fan.ID)
	require.NoError(t, err)
	_, err = svc.AddLike(ctx, solution.ID, fan.ID)
	assert.ErrorIs(t, err, svcErr.ErrLikeNotAccepted)
}
