package db

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ChallengeStatus string

const (
	StatusToBegin    ChallengeStatus = "TO_BEGIN"
	StatusInProgress ChallengeStatus = "IN_PROGRESS"
	StatusDone       ChallengeStatus = "DONE"
)

func (s ChallengeStatus) Valid() bool {
	switch s {
	case StatusToBegin, StatusInProgress, StatusDone:
		return true
	}
	return false
}

// Role table. Names are resolved from configuration at startup.
type Role struct {
	ID   uuid.UUID `gorm:"type:char(36);primaryKey"`
	Name string    `gorm:"uniqueIndex;size:32;not null"`
}

// User table. Password holds a bcrypt digest, never the clear value.
type User struct {
	ID            uuid.UUID `gorm:"type:char(36);primaryKey"`
	Name          string    `gorm:"size:128;not null"`
	Email         string    `gorm:"uniqueIndex;size:128;not null"`
	Password      string    `gorm:"size:255;not null"`
	GithubURL     string    `gorm:"size:255"`
	AdditionalURL string    `gorm:"size:255"`
	Active        bool      `gorm:"not null;default:true"`
	CreatedAt     time.Time `gorm:"autoCreateTime"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime"`
}

// UserRole links users to roles. Composite PK: (UserID, RoleID).
type UserRole struct {
	UserID uuid.UUID `gorm:"type:char(36);primaryKey"`
	RoleID uuid.UUID `gorm:"type:char(36);primaryKey;index"`
}

type Category struct {
	ID   uuid.UUID `gorm:"type:char(36);primaryKey"`
	Name string    `gorm:"uniqueIndex;size:64;not null"`
}

// Technology.Color is six hex digits without the leading '#'.
type Technology struct {
	ID                uuid.UUID `gorm:"type:char(36);primaryKey"`
	Name              string    `gorm:"uniqueIndex;size:64;not null"`
	Description       string    `gorm:"size:512"`
	DocumentationLink string    `gorm:"size:512"`
	Color             string    `gorm:"size:6;not null"`
}

// Challenge holds at most one category (CategoryID is nullable).
//
// Indexes:
//   - idx_challenges_category_id: listing filtered by category.
//   - idx_challenge_created_id(created_at, id): NEWEST/OLDEST ordering with id tie-break.
type Challenge struct {
	ID          uuid.UUID       `gorm:"type:char(36);primaryKey;index:idx_challenge_created_id,priority:2"`
	Title       string          `gorm:"size:255;not null"`
	Description string          `gorm:"type:text"`
	ImageURL    string          `gorm:"size:512"`
	Status      ChallengeStatus `gorm:"size:16;not null"`
	Active      bool            `gorm:"not null;default:true"`
	AuthorID    uuid.UUID       `gorm:"type:char(36);not null;index"`
	CategoryID  *uuid.UUID      `gorm:"type:char(36);index"`
	CreatedAt   time.Time       `gorm:"autoCreateTime;index:idx_challenge_created_id,priority:1"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime"`
}

// ChallengeTechnology is the challenge <-> technology join.
// Composite PK: (ChallengeID, TechnologyID).
type ChallengeTechnology struct {
	ChallengeID  uuid.UUID `gorm:"type:char(36);primaryKey"`
	TechnologyID uuid.UUID `gorm:"type:char(36);primaryKey;index"`
}

// Participation is a user's membership in a challenge.
// Composite PK: (ChallengeID, ParticipantID) rejects duplicate membership.
type Participation struct {
	ChallengeID   uuid.UUID `gorm:"type:char(36);primaryKey"`
	ParticipantID uuid.UUID `gorm:"type:char(36);primaryKey;index"`
	CreatedAt     time.Time `gorm:"autoCreateTime"`
}

// Solution belongs to exactly one challenge; ChallengeID never changes
// after creation.
type Solution struct {
	ID            uuid.UUID `gorm:"type:char(36);primaryKey"`
	ChallengeID   uuid.UUID `gorm:"type:char(36);not null;index"`
	AuthorID      uuid.UUID `gorm:"type:char(36);not null;index"`
	RepositoryURL string    `gorm:"size:512"`
	DeployURL     string    `gorm:"size:512"`
	CreatedAt     time.Time `gorm:"autoCreateTime"`
}

// Like marks that a participant liked a solution.
// Composite PK: (SolutionID, ParticipantID), so a pair is liked at most once.
type Like struct {
	SolutionID    uuid.UUID `gorm:"type:char(36);primaryKey"`
	ParticipantID uuid.UUID `gorm:"type:char(36);primaryKey;index"`
	CreatedAt     time.Time `gorm:"autoCreateTime"`
}

func (r *Role) BeforeCreate(*gorm.DB) error       { r.ID = ensureID(r.ID); return nil }
func (u *User) BeforeCreate(*gorm.DB) error       { u.ID = ensureID(u.ID); return nil }
func (c *Category) BeforeCreate(*gorm.DB) error   { c.ID = ensureID(c.ID); return nil }
func (t *Technology) BeforeCreate(*gorm.DB) error { t.ID = ensureID(t.ID); return nil }
func (c *Challenge) BeforeCreate(*gorm.DB) error  { c.ID = ensureID(c.ID); return nil }
func (s *Solution) BeforeCreate(*gorm.DB) error   { s.ID = ensureID(s.ID); return nil }

func ensureID(id uuid.UUID) uuid.UUID {
	if id == uuid.Nil {
		return uuid.New()
	}
	return id
}

// All lists every model in migration order.
func All() []any {
	return []any{
		&Role{}, &User{}, &UserRole{},
		&Category{}, &Technology{},
		&Challenge{}, &ChallengeTechnology{}, &Participation{},
		&Solution{}, &Like{},
	}
}
