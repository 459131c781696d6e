package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/oggyb/codev-api/internal/db"
)

// LikeRepository manages the solution <-> participant like rows.
type LikeRepository struct {
	db *gorm.DB
}

// NewLikeRepository creates a new repository bound to the given DB connection.
func NewLikeRepository(database *gorm.DB) *LikeRepository {
	return &LikeRepository{db: database}
}

// HasLiked checks whether a participant currently likes a solution.
func (r *LikeRepository) HasLiked(ctx context.Context, solutionID, participantID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Like{}).
		Where("solution_id = ? AND participant_id = ?", solutionID, participantID).
		Count(&count).Error
	return count > 0, err
}

// Add inserts the like row. The composite PK rejects a second row for the
// same pair with gorm.ErrDuplicatedKey.
func (r *LikeRepository) Add(ctx context.Context, solutionID, participantID uuid.UUID) error {
	return r.db.WithContext(ctx).Create(&db.Like{
		SolutionID:    solutionID,
		ParticipantID: participantID,
	}).Error
}

// Remove deletes the like row and reports whether one existed.
func (r *LikeRepository) Remove(ctx context.Context, solutionID, participantID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("solution_id = ? AND participant_id = ?", solutionID, participantID).
		Delete(&db.Like{})
	return res.RowsAffected > 0, res.Error
}

// RemoveBySolution deletes every like of a solution and returns how many went.
func (r *LikeRepository) RemoveBySolution(ctx context.Context, solutionID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("solution_id = ?", solutionID).
		Delete(&db.Like{})
	return res.RowsAffected, res.Error
}

// FindBySolution lists the like rows of a solution.
func (r *LikeRepository) FindBySolution(ctx context.Context, solutionID uuid.UUID) ([]db.Like, error) {
	var likes []db.Like
	if err := r.db.WithContext(ctx).Where("solution_id = ?", solutionID).Find(&likes).Error; err != nil {
		return nil, err
	}
	return likes, nil
}

// CountBySolution counts distinct likers of a solution, author included.
func (r *LikeRepository) CountBySolution(ctx context.Context, solutionID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Like{}).
		Where("solution_id = ?", solutionID).
		Distinct("participant_id").
		Count(&count).Error
	return count, err
}
