package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/oggyb/codev-api/internal/db"
)

// ParticipationRepository manages challenge membership rows.
// Composite PK (challenge_id, participant_id) makes membership a set.
type ParticipationRepository struct {
	db *gorm.DB
}

// NewParticipationRepository creates a new repository bound to the given DB connection.
func NewParticipationRepository(database *gorm.DB) *ParticipationRepository {
	return &ParticipationRepository{db: database}
}

// Add inserts a membership row. An existing membership surfaces as
// gorm.ErrDuplicatedKey rather than being ignored.
func (r *ParticipationRepository) Add(ctx context.Context, challengeID, participantID uuid.UUID) error {
	return r.db.WithContext(ctx).Create(&db.Participation{
		ChallengeID:   challengeID,
		ParticipantID: participantID,
	}).Error
}

// Remove deletes a membership row and reports whether one existed.
func (r *ParticipationRepository) Remove(ctx context.Context, challengeID, participantID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("challenge_id = ? AND participant_id = ?", challengeID, participantID).
		Delete(&db.Participation{})
	return res.RowsAffected > 0, res.Error
}

func (r *ParticipationRepository) Exists(ctx context.Context, challengeID, participantID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Participation{}).
		Where("challenge_id = ? AND participant_id = ?", challengeID, participantID).
		Count(&count).Error
	return count > 0, err
}

func (r *ParticipationRepository) CountByChallenge(ctx context.Context, challengeID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Participation{}).
		Where("challenge_id = ?", challengeID).
		Count(&count).Error
	return count, err
}
