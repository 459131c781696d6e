package db

import (
	"fmt"
	"math/rand"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/codev-api/internal/logger"
)

// seedTables lists every table child-first, so deletes never orphan rows.
var seedTables = []string{
	"likes", "solutions", "participations", "challenge_technologies",
	"challenges", "technologies", "categories", "user_roles", "users",
}

// SeedTestData resets the database and populates it with demo data.
//
// Behavior:
//  1. Clears every domain table (roles are kept and re-ensured).
//  2. Creates 12 users with password "password"; user1 is also admin.
//  3. Creates 4 categories, 6 technologies and 10 challenges; 2 of them
//     stay without a category.
//  4. Every user joins ~4 challenges, submits a solution to ~half of them,
//     and likes ~30% of the other solutions of those challenges.
//
// Compatible with both MySQL and SQLite.
func SeedTestData(db *gorm.DB, userRole, adminRole string) error {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	// --- Fresh start ---
	for _, table := range seedTables {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	if err := EnsureRoles(db, userRole, adminRole); err != nil {
		return err
	}
	var roles []Role
	if err := db.Where("name IN ?", []string{userRole, adminRole}).Find(&roles).Error; err != nil {
		return fmt.Errorf("failed to load roles: %w", err)
	}
	roleID := map[string]Role{}
	for _, role := range roles {
		roleID[role.Name] = role
	}
	logger.Info("cleared existing data")

	// --- Users ---
	hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	users := make([]User, 0, 12)
	for i := 1; i <= 12; i++ {
		u := User{
			Name:      fmt.Sprintf("User %d", i),
			Email:     fmt.Sprintf("user%d@example.com", i),
			Password:  string(hash),
			GithubURL: fmt.Sprintf("https://github.com/user%d", i),
			Active:    true,
		}
		if err := db.Create(&u).Error; err != nil {
			return fmt.Errorf("failed to seed user: %w", err)
		}
		links := []UserRole{{UserID: u.ID, RoleID: roleID[userRole].ID}}
		if i == 1 {
			links = append(links, UserRole{UserID: u.ID, RoleID: roleID[adminRole].ID})
		}
		if err := db.Create(&links).Error; err != nil {
			return fmt.Errorf("failed to seed user roles: %w", err)
		}
		users = append(users, u)
	}
	logger.Info("seeded users", "count", len(users))

	// --- Catalog ---
	categories := []Category{{Name: "Frontend"}, {Name: "Backend"}, {Name: "Fullstack"}, {Name: "Algorithms"}}
	if err := db.Create(&categories).Error; err != nil {
		return fmt.Errorf("failed to seed categories: %w", err)
	}
	technologies := []Technology{
		{Name: "Go", Color: "00ADD8", DocumentationLink: "https://go.dev/doc"},
		{Name: "TypeScript", Color: "3178C6", DocumentationLink: "https://www.typescriptlang.org/docs"},
		{Name: "React", Color: "61DAFB", DocumentationLink: "https://react.dev"},
		{Name: "PostgreSQL", Color: "4169E1", DocumentationLink: "https://www.postgresql.org/docs"},
		{Name: "Docker", Color: "2496ED", DocumentationLink: "https://docs.docker.com"},
		{Name: "Rust", Color: "DEA584", DocumentationLink: "https://doc.rust-lang.org"},
	}
	if err := db.Create(&technologies).Error; err != nil {
		return fmt.Errorf("failed to seed technologies: %w", err)
	}

	// --- Challenges ---
	statuses := []ChallengeStatus{StatusToBegin, StatusInProgress, StatusDone}
	challenges := make([]Challenge, 0, 10)
	for i := 1; i <= 10; i++ {
		c := Challenge{
			Title:       fmt.Sprintf("Challenge %02d", i),
			Description: "Build it, ship it, share the repository.",
			Status:      statuses[r.Intn(len(statuses))],
			Active:      true,
			AuthorID:    users[0].ID,
		}
		if i > 2 {
			c.CategoryID = &categories[r.Intn(len(categories))].ID
		}
		if err := db.Create(&c).Error; err != nil {
			return fmt.Errorf("failed to seed challenge: %w", err)
		}
		for _, t := range r.Perm(len(technologies))[:1+r.Intn(3)] {
			link := ChallengeTechnology{ChallengeID: c.ID, TechnologyID: technologies[t].ID}
			if err := db.Create(&link).Error; err != nil {
				return fmt.Errorf("failed to seed challenge technology: %w", err)
			}
		}
		challenges = append(challenges, c)
	}
	logger.Info("seeded challenges", "count", len(challenges))

	// --- Participations and solutions ---
	solutionsByChallenge := map[int][]Solution{}
	for _, u := range users {
		for _, ci := range r.Perm(len(challenges))[:4] {
			p := Participation{ChallengeID: challenges[ci].ID, ParticipantID: u.ID}
			if err := db.Create(&p).Error; err != nil {
				return fmt.Errorf("failed to seed participation: %w", err)
			}
			if r.Intn(2) == 0 {
				continue
			}
			s := Solution{
				ChallengeID:   challenges[ci].ID,
				AuthorID:      u.ID,
				RepositoryURL: fmt.Sprintf("https://github.com/%s/challenge-%d", u.Email[:len(u.Email)-len("@example.com")], ci+1),
			}
			if err := db.Create(&s).Error; err != nil {
				return fmt.Errorf("failed to seed solution: %w", err)
			}
			solutionsByChallenge[ci] = append(solutionsByChallenge[ci], s)
		}
	}

	// --- Likes (~30%) ---
	likes := 0
	for _, sols := range solutionsByChallenge {
		for _, s := range sols {
			for _, u := range users {
				if u.ID == s.AuthorID || r.Intn(100) >= 30 {
					continue
				}
				like := Like{SolutionID: s.ID, ParticipantID: u.ID}
				if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&like).Error; err != nil {
					return fmt.Errorf("failed to seed like: %w", err)
				}
				likes++
			}
		}
	}
	logger.Info("seeded likes", "count", likes)

	return nil
}
