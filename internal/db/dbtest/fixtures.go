package dbtest

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/oggyb/codev-api/internal/db"
)

// User inserts an active user with a throwaway password digest.
func User(t *testing.T, gdb *gorm.DB, name string) *db.User {
	t.Helper()
	u := db.User{
		Name:     name,
		Email:    fmt.Sprintf("%s@test.com", name),
		Password: "x",
	}
	require.NoError(t, gdb.Create(&u).Error)
	return &u
}

// Deactivate flips active to false. Create skips a false bool that has a
// column default, so this is a separate update.
func Deactivate(t *testing.T, gdb *gorm.DB, model any, id uuid.UUID) {
	t.Helper()
	require.NoError(t, gdb.Model(model).Where("id = ?", id).Update("active", false).Error)
}

func Category(t *testing.T, gdb *gorm.DB, name string) *db.Category {
	t.Helper()
	c := db.Category{Name: name}
	require.NoError(t, gdb.Create(&c).Error)
	return &c
}

func Technology(t *testing.T, gdb *gorm.DB, name string) *db.Technology {
	t.Helper()
	tech := db.Technology{Name: name, Color: "00ADD8"}
	require.NoError(t, gdb.Create(&tech).Error)
	return &tech
}

// Challenge inserts an active TO_BEGIN challenge without a category.
func Challenge(t *testing.T, gdb *gorm.DB, authorID uuid.UUID, title string) *db.Challenge {
	t.Helper()
	c := db.Challenge{
		Title:    title,
		Status:   db.StatusToBegin,
		Active:   true,
		AuthorID: authorID,
	}
	require.NoError(t, gdb.Create(&c).Error)
	return &c
}

func Solution(t *testing.T, gdb *gorm.DB, challengeID, authorID uuid.UUID) *db.Solution {
	t.Helper()
	s := db.Solution{
		ChallengeID:   challengeID,
		AuthorID:      authorID,
		RepositoryURL: "https://github.com/example/solution",
	}
	require.NoError(t, gdb.Create(&s).Error)
	return &s
}

func Like(t *testing.T, gdb *gorm.DB, solutionID, participantID uuid.UUID) {
	t.Helper()
	require.NoError(t, gdb.Create(&db.Like{SolutionID: solutionID, ParticipantID: participantID}).Error)
}

// FailOn makes every DELETE against table fail with err until the test ends.
func FailOn(t *testing.T, gdb *gorm.DB, table string, err error) {
	t.Helper()
	name := "dbtest:fail_delete_" + table
	require.NoError(t, gdb.Callback().Delete().Before("gorm:delete").Register(name, func(tx *gorm.DB) {
		if tx.Statement.Table == table {
			_ = tx.AddError(err)
		}
	}))
	t.Cleanup(func() { _ = gdb.Callback().Delete().Remove(name) })
}
