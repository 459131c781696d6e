package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/oggyb/codev-api/internal/db"
)

// TechnologyRepository provides data access methods for the Technology model.
type TechnologyRepository struct {
	db *gorm.DB
}

// NewTechnologyRepository creates a new repository bound to the given DB connection.
func NewTechnologyRepository(database *gorm.DB) *TechnologyRepository {
	return &TechnologyRepository{db: database}
}

func (r *TechnologyRepository) Create(ctx context.Context, t *db.Technology) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *TechnologyRepository) FindByID(ctx context.Context, id uuid.UUID) (*db.Technology, error) {
	var t db.Technology
	if err := r.db.WithContext(ctx).First(&t, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

// CountByIDs counts how many of the given distinct ids exist.
func (r *TechnologyRepository) CountByIDs(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var count int64
	err := r.db.WithContext(ctx).Model(&db.Technology{}).Where("id IN ?", ids).Count(&count).Error
	return count, err
}

func (r *TechnologyRepository) FindAll(ctx context.Context) ([]db.Technology, error) {
	var technologies []db.Technology
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&technologies).Error; err != nil {
		return nil, err
	}
	return technologies, nil
}

// FindByChallenge lists the technologies linked to one challenge.
func (r *TechnologyRepository) FindByChallenge(ctx context.Context, challengeID uuid.UUID) ([]db.Technology, error) {
	var technologies []db.Technology
	err := r.db.WithContext(ctx).
		Joins("JOIN challenge_technologies ct ON ct.technology_id = technologies.id").
		Where("ct.challenge_id = ?", challengeID).
		Order("technologies.name ASC").
		Find(&technologies).Error
	if err != nil {
		return nil, err
	}
	return technologies, nil
}

func (r *TechnologyRepository) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&db.Technology{}).
		Where("id = ?", id).
		Updates(fields).Error
}

// Delete removes the technology and every challenge link to it.
// Run inside a transaction so both statements commit together.
func (r *TechnologyRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	if err := r.db.WithContext(ctx).
		Where("technology_id = ?", id).
		Delete(&db.ChallengeTechnology{}).Error; err != nil {
		return false, err
	}
	res := r.db.WithContext(ctx).Delete(&db.Technology{}, "id = ?", id)
	return res.RowsAffected > 0, res.Error
}
