package challenge_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/oggyb/codev-api/internal/app"
	"github.com/oggyb/codev-api/internal/db"
	"github.com/oggyb/codev-api/internal/db/dbtest"
	svcErr "github.com/oggyb/codev-api/internal/errors"
	"github.com/oggyb/codev-api/internal/logger"
	"github.com/oggyb/codev-api/internal/service/challenge"
	"github.com/oggyb/codev-api/internal/view"
)

func setupService(t *testing.T) (*challenge.Service, *gorm.DB, *db.User) {
	t.Helper()
	gdb := dbtest.New(t)
	appCtx := app.New(nil, gdb, nil, nil, logger.Nop())
	return challenge.NewChallengeService(appCtx), gdb, dbtest.User(t, gdb, "author")
}

// seedTitles inserts challenges created one minute apart, in the given order.
func seedTitles(t *testing.T, gdb *gorm.DB, authorID uuid.UUID, titles ...string) []*db.Challenge {
	t.Helper()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]*db.Challenge, 0, len(titles))
	for i, title := range titles {
		c := dbtest.Challenge(t, gdb, authorID, title)
		created := base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, gdb.Model(&db.Challenge{}).Where("id = ?", c.ID).Update("created_at", created).Error)
		out = append(out, c)
	}
	return out
}

func titlesOf(list []view.Challenge) []string {
	out := make([]string, 0, len(list))
	for _, c := range list {
		out = append(out, c.Title)
	}
	return out
}

func TestCreateChallenge(t *testing.T) {
	ctx := context.Background()
	svc, gdb, author := setupService(t)
	cat := dbtest.Category(t, gdb, "Frontend")
	goTech := dbtest.Technology(t, gdb, "Go")
	sqlTech := dbtest.Technology(t, gdb, "SQL")

	got, err := svc.CreateChallenge(ctx, challenge.Form{
		Title:         "  Todo app ",
		Description:   "Build a todo app",
		AuthorID:      author.ID,
		CategoryID:    &cat.ID,
		TechnologyIDs: []uuid.UUID{goTech.ID, sqlTech.ID, goTech.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, "Todo app", got.Title)
	assert.Equal(t, db.StatusToBegin, got.Status)
	assert.True(t, got.Active)
	require.NotNil(t, got.Category)
	assert.Equal(t, "Frontend", got.Category.Name)
	require.Len(t, got.Technologies, 2, "duplicate ids collapse")
	assert.Equal(t, "Go", got.Technologies[0].Name)
	assert.Equal(t, "SQL", got.Technologies[1].Name)
}

func TestCreateChallenge_Rejected(t *testing.T) {
	ctx := context.Background()
	svc, gdb, author := setupService(t)

	_, err := svc.CreateChallenge(ctx, challenge.Form{Title: "", AuthorID: author.ID})
	assert.ErrorIs(t, err, svcErr.ErrInvalidArgument)

	_, err = svc.CreateChallenge(ctx, challenge.Form{Title: "x", AuthorID: author.ID, Status: "PAUSED"})
	assert.ErrorIs(t, err, svcErr.ErrInvalidArgument)

	missing := uuid.New()
	_, err = svc.CreateChallenge(ctx, challenge.Form{Title: "x", AuthorID: author.ID, CategoryID: &missing})
	assert.ErrorIs(t, err, svcErr.ErrNotFound)

	_, err = svc.CreateChallenge(ctx, challenge.Form{Title: "x", AuthorID: author.ID, TechnologyIDs: []uuid.UUID{uuid.New()}})
	assert.ErrorIs(t, err, svcErr.ErrNotFound)

	_, err = svc.CreateChallenge(ctx, challenge.Form{Title: "x", AuthorID: uuid.New()})
	assert.ErrorIs(t, err, svcErr.ErrNotFound)

	dbtest.Deactivate(t, gdb, &db.User{}, author.ID)
	_, err = svc.CreateChallenge(ctx, challenge.Form{Title: "x", AuthorID: author.ID})
	assert.ErrorIs(t, err, svcErr.ErrUserDeactivated)

	var n int64
	require.NoError(t, gdb.Model(&db.Challenge{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestUpdateChallenge_AppliesOnlySetFields(t *testing.T) {
	ctx := context.Background()
	svc, gdb, author := setupService(t)
	c := dbtest.Challenge(t, gdb, author.ID, "Todo app")
	require.NoError(t, gdb.Model(&db.Challenge{}).Where("id = ?", c.ID).Update("description", "original").Error)

	title := "Todo app v2"
	status := db.StatusInProgress
	got, err := svc.UpdateChallenge(ctx, c.ID, challenge.Patch{Title: &title, Status: &status})
	require.NoError(t, err)
	assert.Equal(t, "Todo app v2", got.Title)
	assert.Equal(t, db.StatusInProgress, got.Status)
	assert.Equal(t, "original", got.Description)

	blank := "   "
	_, err = svc.UpdateChallenge(ctx, c.ID, challenge.Patch{Title: &blank})
	assert.ErrorIs(t, err, svcErr.ErrInvalidArgument)

	_, err = svc.UpdateChallenge(ctx, uuid.New(), challenge.Patch{Title: &title})
	assert.ErrorIs(t, err, svcErr.ErrNotFound)

	got, err = svc.UpdateChallenge(ctx, c.ID, challenge.Patch{})
	require.NoError(t, err)
	assert.Equal(t, "Todo app v2", got.Title)
}

func TestUpdateChallenge_ImageURL(t *testing.T) {
	ctx := context.Background()
	svc, gdb, author := setupService(t)
	c := dbtest.Challenge(t, gdb, author.ID, "Todo app")

	image := "https://img.test/todo.png"
	got, err := svc.UpdateChallenge(ctx, c.ID, challenge.Patch{ImageURL: &image})
	require.NoError(t, err)
	assert.Equal(t, image, got.ImageURL)

	bad := "not a url"
	_, err = svc.UpdateChallenge(ctx, c.ID, challenge.Patch{ImageURL: &bad})
	assert.ErrorIs(t, err, svcErr.ErrInvalidArgument)

	// an explicit empty value clears the image
	empty := ""
	got, err = svc.UpdateChallenge(ctx, c.ID, challenge.Patch{ImageURL: &empty})
	require.NoError(t, err)
	assert.Empty(t, got.ImageURL)
}

func TestDeactivateChallenge(t *testing.T) {
	ctx := context.Background()
	svc, gdb, author := setupService(t)
	c := dbtest.Challenge(t, gdb, author.ID, "Todo app")

	require.NoError(t, svc.DeactivateChallenge(ctx, c.ID))
	got, err := svc.GetChallenge(ctx, c.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)

	assert.ErrorIs(t, svc.DeactivateChallenge(ctx, uuid.New()), svcErr.ErrNotFound)
}

func TestChallengeTechnologies(t *testing.T) {
	ctx := context.Background()
	svc, gdb, author := setupService(t)
	c := dbtest.Challenge(t, gdb, author.ID, "Todo app")
	tech := dbtest.Technology(t, gdb, "Go")

	got, err := svc.AddTechnology(ctx, c.ID, tech.ID)
	require.NoError(t, err)
	require.Len(t, got.Technologies, 1)

	_, err = svc.AddTechnology(ctx, c.ID, tech.ID)
	assert.ErrorIs(t, err, svcErr.ErrConflict)

	_, err = svc.AddTechnology(ctx, c.ID, uuid.New())
	assert.ErrorIs(t, err, svcErr.ErrNotFound)

	list, err := svc.ListTechnologies(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Go", list[0].Name)

	got, err = svc.RemoveTechnology(ctx, c.ID, tech.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Technologies)

	_, err = svc.RemoveTechnology(ctx, c.ID, tech.ID)
	assert.ErrorIs(t, err, svcErr.ErrNotFound)

	_, err = svc.ListTechnologies(ctx, uuid.New())
	assert.ErrorIs(t, err, svcErr.ErrNotFound)
}

func TestListChallenges_Orders(t *testing.T) {
	ctx := context.Background()
	svc, gdb, author := setupService(t)
	seedTitles(t, gdb, author.ID, "Bravo", "Delta", "Alpha", "Charlie")

	cases := []struct {
		order string
		want  []string
	}{
		{"", []string{"Charlie", "Alpha", "Delta", "Bravo"}},
		{"NEWEST", []string{"Charlie", "Alpha", "Delta", "Bravo"}},
		{"oldest", []string{"Bravo", "Delta", "Alpha", "Charlie"}},
		{"TITLE_ASC", []string{"Alpha", "Bravo", "Charlie", "Delta"}},
		{"TITLE_DESC", []string{"Delta", "Charlie", "Bravo", "Alpha"}},
	}
	for _, tc := range cases {
		t.Run("order="+tc.order, func(t *testing.T) {
			got, err := svc.ListChallenges(ctx, challenge.Query{Page: 0, Size: 10, OrderBy: tc.order})
			require.NoError(t, err)
			assert.Equal(t, tc.want, titlesOf(got))
		})
	}
}

// TestListChallenges_PagesCoverAll: concatenated pages equal the full
// ordered list with no duplicates, even when order keys tie.
func TestListChallenges_PagesCoverAll(t *testing.T) {
	ctx := context.Background()
	svc, gdb, author := setupService(t)
	for range 5 {
		dbtest.Challenge(t, gdb, author.ID, "Same title")
	}

	full, err := svc.ListChallenges(ctx, challenge.Query{Page: 0, Size: 100, OrderBy: "TITLE_ASC"})
	require.NoError(t, err)
	require.Len(t, full, 5)

	var paged []view.Challenge
	for page := 0; ; page++ {
		got, err := svc.ListChallenges(ctx, challenge.Query{Page: page, Size: 2, OrderBy: "TITLE_ASC"})
		require.NoError(t, err)
		if len(got) == 0 {
			break
		}
		paged = append(paged, got...)
	}

	require.Len(t, paged, len(full))
	for i := range full {
		assert.Equal(t, full[i].ID, paged[i].ID)
	}
}

func TestListChallenges_FilterByCategory(t *testing.T) {
	ctx := context.Background()
	svc, gdb, author := setupService(t)
	frontend := dbtest.Category(t, gdb, "Frontend")
	backend := dbtest.Category(t, gdb, "Backend")
	tech := dbtest.Technology(t, gdb, "Go")

	cs := seedTitles(t, gdb, author.ID, "One", "Two", "Three")
	require.NoError(t, gdb.Model(&db.Challenge{}).Where("id = ?", cs[0].ID).Update("category_id", frontend.ID).Error)
	require.NoError(t, gdb.Model(&db.Challenge{}).Where("id = ?", cs[2].ID).Update("category_id", frontend.ID).Error)
	require.NoError(t, gdb.Model(&db.Challenge{}).Where("id = ?", cs[1].ID).Update("category_id", backend.ID).Error)
	require.NoError(t, gdb.Create(&db.ChallengeTechnology{ChallengeID: cs[2].ID, TechnologyID: tech.ID}).Error)

	got, err := svc.ListChallenges(ctx, challenge.Query{Page: 0, Size: 10, CategoryID: &frontend.ID})
	require.NoError(t, err)
	assert.Equal(t, []string{"Three", "One"}, titlesOf(got))
	for _, c := range got {
		require.NotNil(t, c.Category)
		assert.Equal(t, "Frontend", c.Category.Name)
	}
	require.Len(t, got[0].Technologies, 1)
	assert.Empty(t, got[1].Technologies)

	got, err = svc.ListChallengesByCategory(ctx, backend.ID, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"Two"}, titlesOf(got))

	_, err = svc.ListChallengesByCategory(ctx, uuid.New(), 0, 10)
	assert.ErrorIs(t, err, svcErr.ErrNotFound)

	got, err = svc.ListChallenges(ctx, challenge.Query{Page: 0, Size: 10})
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestListChallenges_InvalidQuery(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := setupService(t)

	_, err := svc.ListChallenges(ctx, challenge.Query{Page: -1, Size: 10})
	assert.ErrorIs(t, err, svcErr.ErrInvalidArgument)

	_, err = svc.ListChallenges(ctx, challenge.Query{Page: 0, Size: 0})
	assert.ErrorIs(t, err, svcErr.ErrInvalidArgument)

	_, err = svc.ListChallenges(ctx, challenge.Query{Page: 0, Size: 10, OrderBy: "POPULAR"})
	assert.ErrorIs(t, err, svcErr.ErrInvalidArgument)
}

func TestListChallenges_PastTheEndIsEmpty(t *testing.T) {
	ctx := context.Background()
	svc, gdb, author := setupService(t)
	seedTitles(t, gdb, author.ID, "One", "Two")

	got, err := svc.ListChallenges(ctx, challenge.Query{Page: 5, Size: 10})
	require.NoError(t, err)
	assert.Empty(t, got)
}
