package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/oggyb/codev-api/internal/db"
)

// CategoryRepository provides data access methods for the Category model.
type CategoryRepository struct {
	db *gorm.DB
}

// NewCategoryRepository creates a new repository bound to the given DB connection.
func NewCategoryRepository(database *gorm.DB) *CategoryRepository {
	return &CategoryRepository{db: database}
}

// Create inserts a category. A taken name surfaces as gorm.ErrDuplicatedKey.
func (r *CategoryRepository) Create(ctx context.Context, c *db.Category) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *CategoryRepository) FindByID(ctx context.Context, id uuid.UUID) (*db.Category, error) {
	var c db.Category
	if err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// FindByIDs returns the categories keyed by id. Unknown ids are skipped.
func (r *CategoryRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]db.Category, error) {
	out := make(map[uuid.UUID]db.Category, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var categories []db.Category
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&categories).Error; err != nil {
		return nil, err
	}
	for _, c := range categories {
		out[c.ID] = c
	}
	return out, nil
}

// FindAll returns every category ordered by name ascending.
func (r *CategoryRepository) FindAll(ctx context.Context) ([]db.Category, error) {
	var categories []db.Category
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

// Rename reports whether the category existed.
func (r *CategoryRepository) Rename(ctx context.Context, id uuid.UUID, name string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&db.Category{}).
		Where("id = ?", id).
		Update("name", name)
	return res.RowsAffected > 0, res.Error
}

// Delete removes the category row only. Callers must detach challenges
// first, in the same transaction.
func (r *CategoryRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Delete(&db.Category{}, "id = ?", id)
	return res.RowsAffected > 0, res.Error
}
