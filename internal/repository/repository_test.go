package repository_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/oggyb/codev-api/internal/db"
	"github.com/oggyb/codev-api/internal/db/dbtest"
	"github.com/oggyb/codev-api/internal/repository"
	"github.com/oggyb/codev-api/internal/utils/pagination"
)

func TestAssignCategory_OnlyWhenUnset(t *testing.T) {
	ctx := context.Background()
	gdb := dbtest.New(t)
	store := repository.NewStore(gdb)
	author := dbtest.User(t, gdb, "author")
	c := dbtest.Challenge(t, gdb, author.ID, "Todo app")
	first := dbtest.Category(t, gdb, "First")
	second := dbtest.Category(t, gdb, "Second")

	ok, err := store.Challenges.AssignCategory(ctx, c.ID, first.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	// guard in the UPDATE refuses to overwrite
	ok, err = store.Challenges.AssignCategory(ctx, c.ID, second.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := store.Challenges.FindByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, *got.CategoryID)

	n, err := store.Challenges.DetachCategory(ctx, first.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	got, err = store.Challenges.FindByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Nil(t, got.CategoryID)
}

func TestTechnologiesByChallenge(t *testing.T) {
	ctx := context.Background()
	gdb := dbtest.New(t)
	store := repository.NewStore(gdb)
	author := dbtest.User(t, gdb, "author")
	a := dbtest.Challenge(t, gdb, author.ID, "A")
	b := dbtest.Challenge(t, gdb, author.ID, "B")
	empty := dbtest.Challenge(t, gdb, author.ID, "C")
	goTech := dbtest.Technology(t, gdb, "Go")
	sqlTech := dbtest.Technology(t, gdb, "SQL")

	require.NoError(t, store.Challenges.AddTechnology(ctx, a.ID, sqlTech.ID))
	require.NoError(t, store.Challenges.AddTechnology(ctx, a.ID, goTech.ID))
	require.NoError(t, store.Challenges.AddTechnology(ctx, b.ID, goTech.ID))

	err := store.Challenges.AddTechnology(ctx, a.ID, goTech.ID)
	assert.True(t, errors.Is(err, gorm.ErrDuplicatedKey))

	got, err := store.Challenges.TechnologiesByChallenge(ctx, []uuid.UUID{a.ID, b.ID, empty.ID})
	require.NoError(t, err)
	require.Len(t, got[a.ID], 2)
	assert.Equal(t, "Go", got[a.ID][0].Name)
	assert.Equal(t, "SQL", got[a.ID][1].Name)
	require.Len(t, got[b.ID], 1)
	assert.Empty(t, got[empty.ID])
}

func TestParticipation_DuplicateRejected(t *testing.T) {
	ctx := context.Background()
	gdb := dbtest.New(t)
	store := repository.NewStore(gdb)
	user := dbtest.User(t, gdb, "player")
	challengeID, userID := dbtest.Challenge(t, gdb, user.ID, "Todo app").ID, user.ID

	require.NoError(t, store.Participations.Add(ctx, challengeID, userID))
	err := store.Participations.Add(ctx, challengeID, userID)
	assert.True(t, errors.Is(err, gorm.ErrDuplicatedKey))

	removed, err := store.Participations.Remove(ctx, challengeID, userID)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = store.Participations.Remove(ctx, challengeID, userID)
	require.NoError(t, err)
	assert.False(t, removed)

	n, err := store.Participations.CountByChallenge(ctx, challengeID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSolutionEngagement(t *testing.T) {
	ctx := context.Background()
	gdb := dbtest.New(t)
	store := repository.NewStore(gdb)
	author := dbtest.User(t, gdb, "author")
	fan := dbtest.User(t, gdb, "fan")
	c := dbtest.Challenge(t, gdb, author.ID, "Todo app")
	s := dbtest.Solution(t, gdb, c.ID, author.ID)
	other := dbtest.Solution(t, gdb, c.ID, fan.ID)

	require.NoError(t, store.Likes.Add(ctx, s.ID, author.ID))
	require.NoError(t, store.Likes.Add(ctx, s.ID, fan.ID))

	page, err := pagination.New(0, 10)
	require.NoError(t, err)

	rows, err := store.Solutions.ListForChallenge(ctx, c.ID, author.ID, page, repository.SolutionOrderMostLiked)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, s.ID, rows[0].ID)
	assert.EqualValues(t, 2, rows[0].Likes)
	assert.False(t, rows[0].Liked, "author never sees own solution as liked")
	assert.Equal(t, other.ID, rows[1].ID)
	assert.EqualValues(t, 0, rows[1].Likes)

	row, err := store.Solutions.FindRow(ctx, s.ID, fan.ID)
	require.NoError(t, err)
	assert.True(t, row.Liked)
	assert.Equal(t, "author", row.AuthorName)

	_, err = store.Solutions.FindRow(ctx, uuid.New(), fan.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	n, err := store.Likes.RemoveBySolution(ctx, s.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}

func TestStoreTransaction_RollsBack(t *testing.T) {
	ctx := context.Background()
	gdb := dbtest.New(t)
	store := repository.NewStore(gdb)

	boom := errors.New("boom")
	err := store.Transaction(ctx, func(tx *repository.Store) error {
		require.NoError(t, tx.Categories.Create(ctx, &db.Category{Name: "Gone"}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	all, err := store.Categories.FindAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestParseOrders(t *testing.T) {
	o, ok := repository.ParseOrderBy("")
	assert.True(t, ok)
	assert.Equal(t, repository.OrderNewest, o)

	o, ok = repository.ParseOrderBy(" title_desc ")
	assert.True(t, ok)
	assert.Equal(t, repository.OrderTitleDesc, o)

	_, ok = repository.ParseOrderBy("random")
	assert.False(t, ok)

	so, ok := repository.ParseSolutionOrder("")
	assert.True(t, ok)
	assert.Equal(t, repository.SolutionOrderID, so)

	_, ok = repository.ParseSolutionOrder("newest")
	assert.False(t, ok)
}
