// Package view holds the flat projections services return to callers.
package view

import (
	"time"

	"github.com/google/uuid"

	"github.com/oggyb/codev-api/internal/db"
	"github.com/oggyb/codev-api/internal/repository"
)

type Category struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type Technology struct {
	ID                uuid.UUID `json:"id"`
	Name              string    `json:"name"`
	Description       string    `json:"description"`
	DocumentationLink string    `json:"documentation_link"`
	Color             string    `json:"color"`
}

// Challenge embeds its category (nil when unset) and its technology set.
type Challenge struct {
	ID           uuid.UUID          `json:"id"`
	Title        string             `json:"title"`
	Description  string             `json:"description"`
	ImageURL     string             `json:"image_url"`
	Status       db.ChallengeStatus `json:"status"`
	Active       bool               `json:"active"`
	AuthorID     uuid.UUID          `json:"author_id"`
	Category     *Category          `json:"category"`
	Technologies []Technology       `json:"technologies"`
	CreatedAt    time.Time          `json:"created_at"`
}

// User never carries the password digest.
type User struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	GithubURL     string    `json:"github_url"`
	AdditionalURL string    `json:"additional_url"`
	Active        bool      `json:"active"`
	Roles         []string  `json:"roles"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type Author struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	GithubURL string    `json:"github_url"`
}

// Solution carries engagement computed for the requesting viewer.
type Solution struct {
	ID            uuid.UUID `json:"id"`
	ChallengeID   uuid.UUID `json:"challenge_id"`
	Author        Author    `json:"author"`
	RepositoryURL string    `json:"repository_url"`
	DeployURL     string    `json:"deploy_url"`
	Likes         int64     `json:"likes"`
	Liked         bool      `json:"liked"`
}

// Like is the state of one (solution, user) pair after a toggle.
type Like struct {
	SolutionID uuid.UUID `json:"solution_id"`
	UserID     uuid.UUID `json:"user_id"`
	Liked      bool      `json:"liked"`
}

func FromCategory(c db.Category) Category {
	return Category{ID: c.ID, Name: c.Name}
}

func FromTechnology(t db.Technology) Technology {
	return Technology{
		ID:                t.ID,
		Name:              t.Name,
		Description:       t.Description,
		DocumentationLink: t.DocumentationLink,
		Color:             t.Color,
	}
}

func FromTechnologies(ts []db.Technology) []Technology {
	out := make([]Technology, 0, len(ts))
	for _, t := range ts {
		out = append(out, FromTechnology(t))
	}
	return out
}

// FromChallenge builds a challenge view; category may be nil.
func FromChallenge(c db.Challenge, category *db.Category, technologies []db.Technology) Challenge {
	v := Challenge{
		ID:           c.ID,
		Title:        c.Title,
		Description:  c.Description,
		ImageURL:     c.ImageURL,
		Status:       c.Status,
		Active:       c.Active,
		AuthorID:     c.AuthorID,
		Technologies: FromTechnologies(technologies),
		CreatedAt:    c.CreatedAt,
	}
	if category != nil {
		cv := FromCategory(*category)
		v.Category = &cv
	}
	return v
}

func FromUser(u db.User, roles []string) User {
	if roles == nil {
		roles = []string{}
	}
	return User{
		ID:            u.ID,
		Name:          u.Name,
		Email:         u.Email,
		GithubURL:     u.GithubURL,
		AdditionalURL: u.AdditionalURL,
		Active:        u.Active,
		Roles:         roles,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}

func FromSolutionRow(r repository.SolutionRow) Solution {
	return Solution{
		ID:          r.ID,
		ChallengeID: r.ChallengeID,
		Author: Author{
			ID:        r.AuthorID,
			Name:      r.AuthorName,
			Email:     r.AuthorEmail,
			GithubURL: r.AuthorGithubURL,
		},
		RepositoryURL: r.RepositoryURL,
		DeployURL:     r.DeployURL,
		Likes:         r.Likes,
		Liked:         r.Liked,
	}
}
