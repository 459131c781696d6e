package repository

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/codev-api/internal/db"
	"github.com/oggyb/codev-api/internal/utils/pagination"
)

// OrderBy selects the sort key of a challenge listing. Every policy breaks
// ties by challenge id ascending so pages are deterministic across requests.
type OrderBy string

const (
	OrderNewest    OrderBy = "NEWEST"
	OrderOldest    OrderBy = "OLDEST"
	OrderTitleAsc  OrderBy = "TITLE_ASC"
	OrderTitleDesc OrderBy = "TITLE_DESC"
)

// ParseOrderBy accepts a policy name case-insensitively. Empty means NEWEST.
func ParseOrderBy(s string) (OrderBy, bool) {
	switch o := OrderBy(strings.ToUpper(strings.TrimSpace(s))); o {
	case "":
		return OrderNewest, true
	case OrderNewest, OrderOldest, OrderTitleAsc, OrderTitleDesc:
		return o, true
	}
	return "", false
}

func (o OrderBy) clause() string {
	switch o {
	case OrderOldest:
		return "challenges.created_at ASC, challenges.id ASC"
	case OrderTitleAsc:
		return "challenges.title ASC, challenges.id ASC"
	case OrderTitleDesc:
		return "challenges.title DESC, challenges.id ASC"
	default:
		return "challenges.created_at DESC, challenges.id ASC"
	}
}

// ChallengeFilter narrows a listing. A nil CategoryID spans all categories.
type ChallengeFilter struct {
	CategoryID *uuid.UUID
	OrderBy    OrderBy
	Page       pagination.Page
}

// ChallengeRepository provides data access for challenges and the
// associations a challenge owns (category reference, technology set).
type ChallengeRepository struct {
	db *gorm.DB
}

// NewChallengeRepository creates a new repository bound to the given DB connection.
func NewChallengeRepository(database *gorm.DB) *ChallengeRepository {
	return &ChallengeRepository{db: database}
}

func (r *ChallengeRepository) Create(ctx context.Context, c *db.Challenge) error {
	return r.db.WithContext(ctx).Create(c).Error
}

// FindByID returns gorm.ErrRecordNotFound when the id does not resolve.
func (r *ChallengeRepository) FindByID(ctx context.Context, id uuid.UUID) (*db.Challenge, error) {
	var c db.Challenge
	if err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// FindByIDForUpdate is FindByID with a row lock (SELECT ... FOR UPDATE on
// MySQL). Only meaningful inside a transaction.
func (r *ChallengeRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*db.Challenge, error) {
	var c db.Challenge
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&c, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// UpdateFields writes the given columns. Keys are column names.
func (r *ChallengeRepository) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&db.Challenge{}).
		Where("id = ?", id).
		Updates(fields).Error
}

// AssignCategory sets the category only while none is set.
//
// Behavior:
//   - The guard lives in the UPDATE itself (category_id IS NULL), so two
//     concurrent assigns cannot both win.
//   - Returns false when the challenge already had a category (or does not exist).
func (r *ChallengeRepository) AssignCategory(ctx context.Context, challengeID, categoryID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&db.Challenge{}).
		Where("id = ? AND category_id IS NULL", challengeID).
		Update("category_id", categoryID)
	return res.RowsAffected == 1, res.Error
}

// ClearCategory nulls the category of a single challenge. No-op when unset.
func (r *ChallengeRepository) ClearCategory(ctx context.Context, challengeID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&db.Challenge{}).
		Where("id = ?", challengeID).
		Update("category_id", nil).Error
}

// DetachCategory nulls the category on every challenge that references it
// and returns how many challenges were touched.
func (r *ChallengeRepository) DetachCategory(ctx context.Context, categoryID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&db.Challenge{}).
		Where("category_id = ?", categoryID).
		Update("category_id", nil)
	return res.RowsAffected, res.Error
}

// List returns one page of challenges.
//
// Behavior:
//   - Filters by category when filter.CategoryID is set.
//   - Orders by the filter's policy, ties broken by id ascending.
//   - offset = page * size, limit = size.
func (r *ChallengeRepository) List(ctx context.Context, filter ChallengeFilter) ([]db.Challenge, error) {
	var challenges []db.Challenge

	query := r.db.WithContext(ctx).Model(&db.Challenge{})
	if filter.CategoryID != nil {
		query = query.Where("challenges.category_id = ?", *filter.CategoryID)
	}

	err := query.
		Order(filter.OrderBy.clause()).
		Offset(filter.Page.Offset()).
		Limit(filter.Page.Limit()).
		Find(&challenges).Error
	if err != nil {
		return nil, err
	}
	return challenges, nil
}

type challengeTechnologyRow struct {
	ChallengeID uuid.UUID
	db.Technology
}

// TechnologiesByChallenge resolves the technology set of every given
// challenge in a single query. Each set is unique by technology id.
func (r *ChallengeRepository) TechnologiesByChallenge(ctx context.Context, challengeIDs []uuid.UUID) (map[uuid.UUID][]db.Technology, error) {
	out := make(map[uuid.UUID][]db.Technology, len(challengeIDs))
	if len(challengeIDs) == 0 {
		return out, nil
	}

	var rows []challengeTechnologyRow
	err := r.db.WithContext(ctx).
		Table("challenge_technologies ct").
		Select("ct.challenge_id, t.id, t.name, t.description, t.documentation_link, t.color").
		Joins("JOIN technologies t ON t.id = ct.technology_id").
		Where("ct.challenge_id IN ?", challengeIDs).
		Order("t.name ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	seen := make(map[[2]uuid.UUID]struct{}, len(rows))
	for _, row := range rows {
		key := [2]uuid.UUID{row.ChallengeID, row.Technology.ID}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out[row.ChallengeID] = append(out[row.ChallengeID], row.Technology)
	}
	return out, nil
}

// AddTechnology links a technology. A duplicate link surfaces as gorm.ErrDuplicatedKey.
func (r *ChallengeRepository) AddTechnology(ctx context.Context, challengeID, technologyID uuid.UUID) error {
	return r.db.WithContext(ctx).Create(&db.ChallengeTechnology{
		ChallengeID:  challengeID,
		TechnologyID: technologyID,
	}).Error
}

// RemoveTechnology unlinks a technology and reports whether a link existed.
func (r *ChallengeRepository) RemoveTechnology(ctx context.Context, challengeID, technologyID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("challenge_id = ? AND technology_id = ?", challengeID, technologyID).
		Delete(&db.ChallengeTechnology{})
	return res.RowsAffected > 0, res.Error
}
