package repository

import (
	"context"

	"gorm.io/gorm"
)

// Store bundles every repository over one connection handle. A Store built
// inside Transaction shares the transaction, so all of its repositories
// commit or roll back together.
type Store struct {
	db *gorm.DB

	Users          *UserRepository
	Categories     *CategoryRepository
	Technologies   *TechnologyRepository
	Challenges     *ChallengeRepository
	Participations *ParticipationRepository
	Solutions      *SolutionRepository
	Likes          *LikeRepository
}

// NewStore creates a Store bound to the given DB connection.
func NewStore(database *gorm.DB) *Store {
	return &Store{
		db:             database,
		Users:          NewUserRepository(database),
		Categories:     NewCategoryRepository(database),
		Technologies:   NewTechnologyRepository(database),
		Challenges:     NewChallengeRepository(database),
		Participations: NewParticipationRepository(database),
		Solutions:      NewSolutionRepository(database),
		Likes:          NewLikeRepository(database),
	}
}

// Transaction runs fn as one atomic unit of work. Any error returned by fn,
// or a panic, rolls back every statement issued through tx.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}

// DB exposes the underlying handle for callers that need raw access (seeding, tests).
func (s *Store) DB() *gorm.DB { return s.db }
