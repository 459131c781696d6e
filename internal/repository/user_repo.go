package repository

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/oggyb/codev-api/internal/db"
	"github.com/oggyb/codev-api/internal/utils/pagination"
)

// UserFilter narrows a user listing. Empty strings and a nil Active match
// every user.
type UserFilter struct {
	// Name and Email match case-insensitive substrings.
	Name   string
	Email  string
	Active *bool
	Page   pagination.Page
}

// UserRepository provides data access for users and their role links.
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new repository bound to the given DB connection.
func NewUserRepository(database *gorm.DB) *UserRepository {
	return &UserRepository{db: database}
}

// Create inserts a user. A taken email surfaces as gorm.ErrDuplicatedKey.
func (r *UserRepository) Create(ctx context.Context, u *db.User) error {
	return r.db.WithContext(ctx).Create(u).Error
}

func (r *UserRepository) FindByID(ctx context.Context, id uuid.UUID) (*db.User, error) {
	var u db.User
	if err := r.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// FindByEmail matches the stored (lower-cased) email exactly.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*db.User, error) {
	var u db.User
	if err := r.db.WithContext(ctx).First(&u, "email = ?", email).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// List returns one page of users ordered by name, ties broken by id.
func (r *UserRepository) List(ctx context.Context, filter UserFilter) ([]db.User, error) {
	var users []db.User

	query := r.db.WithContext(ctx).Model(&db.User{})
	if name := strings.TrimSpace(filter.Name); name != "" {
		query = query.Where("LOWER(users.name) LIKE ?", "%"+strings.ToLower(name)+"%")
	}
	if email := strings.TrimSpace(filter.Email); email != "" {
		query = query.Where("users.email LIKE ?", "%"+strings.ToLower(email)+"%")
	}
	if filter.Active != nil {
		query = query.Where("users.active = ?", *filter.Active)
	}

	err := query.
		Order("users.name ASC, users.id ASC").
		Offset(filter.Page.Offset()).
		Limit(filter.Page.Limit()).
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

type userRoleRow struct {
	UserID uuid.UUID
	Name   string
}

// RoleNamesByUsers resolves the role names of every given user in one query.
func (r *UserRepository) RoleNamesByUsers(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID][]string, error) {
	out := make(map[uuid.UUID][]string, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}

	var rows []userRoleRow
	err := r.db.WithContext(ctx).
		Table("user_roles ur").
		Select("ur.user_id, r.name").
		Joins("JOIN roles r ON r.id = ur.role_id").
		Where("ur.user_id IN ?", userIDs).
		Order("r.name ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.UserID] = append(out[row.UserID], row.Name)
	}
	return out, nil
}

func (r *UserRepository) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&db.User{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *UserRepository) RoleByName(ctx context.Context, name string) (*db.Role, error) {
	var role db.Role
	if err := r.db.WithContext(ctx).First(&role, "name = ?", name).Error; err != nil {
		return nil, err
	}
	return &role, nil
}

// AddRole links a role. An existing link surfaces as gorm.ErrDuplicatedKey.
func (r *UserRepository) AddRole(ctx context.Context, userID, roleID uuid.UUID) error {
	return r.db.WithContext(ctx).Create(&db.UserRole{UserID: userID, RoleID: roleID}).Error
}

// RoleNames lists the names of the roles a user holds.
func (r *UserRepository) RoleNames(ctx context.Context, userID uuid.UUID) ([]string, error) {
	var names []string
	err := r.db.WithContext(ctx).
		Table("user_roles ur").
		Select("r.name").
		Joins("JOIN roles r ON r.id = ur.role_id").
		Where("ur.user_id = ?", userID).
		Order("r.name ASC").
		Pluck("r.name", &names).Error
	if err != nil {
		return nil, err
	}
	return names, nil
}
