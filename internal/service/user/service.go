package user

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/oggyb/codev-api/internal/app"
	"github.com/oggyb/codev-api/internal/db"
	svcErr "github.com/oggyb/codev-api/internal/errors"
	"github.com/oggyb/codev-api/internal/repository"
	"github.com/oggyb/codev-api/internal/service"
	"github.com/oggyb/codev-api/internal/utils/pagination"
	"github.com/oggyb/codev-api/internal/validation"
	"github.com/oggyb/codev-api/internal/view"
)

// Service manages accounts and their roles. Role names come from
// configuration.
type Service struct {
	appCtx *app.AppContext
	store  *repository.Store

	userRole  string
	adminRole string
	cost      int
}

// NewUserService creates a new User service with dependencies from AppContext.
func NewUserService(appCtx *app.AppContext) *Service {
	s := &Service{
		appCtx:    appCtx,
		store:     appCtx.Store,
		userRole:  appCtx.Config.Roles.User,
		adminRole: appCtx.Config.Roles.Admin,
		cost:      bcrypt.DefaultCost,
	}
	if s.userRole == "" {
		s.userRole = "USER"
	}
	if s.adminRole == "" {
		s.adminRole = "ADMIN"
	}
	return s
}

// WithCost overrides the bcrypt cost. Tests use bcrypt.MinCost.
func (s *Service) WithCost(cost int) *Service {
	s.cost = cost
	return s
}

type Form struct {
	Name          string `validate:"required,max=128"`
	Email         string `validate:"required,email,max=128"`
	Password      string `validate:"required,min=8,bcryptlen"`
	GithubURL     string `validate:"omitempty,url,max=255"`
	AdditionalURL string `validate:"omitempty,url,max=255"`
}

type Patch struct {
	Name          *string `validate:"omitnil,min=1,max=128"`
	Email         *string `validate:"omitnil,email,max=128"`
	Password      *string `validate:"omitnil,min=8,bcryptlen"`
	GithubURL     *string `validate:"omitzero,url,max=255"`
	AdditionalURL *string `validate:"omitzero,url,max=255"`
}

// CreateUser stores a new active user holding the default role.
// Conflict when the email is taken.
func (s *Service) CreateUser(ctx context.Context, form Form) (*view.User, error) {
	form.Name = strings.TrimSpace(form.Name)
	form.Email = strings.ToLower(strings.TrimSpace(form.Email))
	if err := validation.Struct(form); err != nil {
		return nil, err
	}

	digest, err := bcrypt.GenerateFromPassword([]byte(form.Password), s.cost)
	if err != nil {
		return nil, hashFailure(err)
	}

	var out view.User
	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		role, err := tx.Users.RoleByName(ctx, s.userRole)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return svcErr.Storage(fmt.Errorf("role %q is not provisioned", s.userRole))
			}
			return svcErr.Storage(err)
		}

		u := db.User{
			Name:          form.Name,
			Email:         form.Email,
			Password:      string(digest),
			GithubURL:     form.GithubURL,
			AdditionalURL: form.AdditionalURL,
			Active:        true,
		}
		if err := tx.Users.Create(ctx, &u); err != nil {
			if svcErr.IsDuplicate(err) {
				return svcErr.Conflict("email %s is already registered", form.Email)
			}
			return svcErr.Storage(err)
		}
		if err := tx.Users.AddRole(ctx, u.ID, role.ID); err != nil {
			return svcErr.Storage(err)
		}
		out = view.FromUser(u, []string{role.Name})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetUser returns an active user. ErrUserDeactivated otherwise.
func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*view.User, error) {
	u, err := service.ActiveUser(ctx, s.store, id)
	if err != nil {
		return nil, err
	}
	roles, err := s.store.Users.RoleNames(ctx, id)
	if err != nil {
		return nil, svcErr.Storage(err)
	}
	v := view.FromUser(*u, roles)
	return &v, nil
}

// UpdateUser applies a patch to an active user. A new password is re-hashed.
func (s *Service) UpdateUser(ctx context.Context, id uuid.UUID, patch Patch) (*view.User, error) {
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		patch.Name = &name
	}
	if patch.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*patch.Email))
		patch.Email = &email
	}
	if err := validation.Struct(patch); err != nil {
		return nil, err
	}

	fields := map[string]any{}
	if patch.Name != nil {
		fields["name"] = *patch.Name
	}
	if patch.Email != nil {
		fields["email"] = *patch.Email
	}
	if patch.GithubURL != nil {
		fields["github_url"] = *patch.GithubURL
	}
	if patch.AdditionalURL != nil {
		fields["additional_url"] = *patch.AdditionalURL
	}
	if patch.Password != nil {
		digest, err := bcrypt.GenerateFromPassword([]byte(*patch.Password), s.cost)
		if err != nil {
			return nil, hashFailure(err)
		}
		fields["password"] = string(digest)
	}

	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		if _, err := service.ActiveUser(ctx, tx, id); err != nil {
			return err
		}
		if err := tx.Users.UpdateFields(ctx, id, fields); err != nil {
			if svcErr.IsDuplicate(err) {
				return svcErr.Conflict("email %s is already registered", *patch.Email)
			}
			return svcErr.Storage(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetUser(ctx, id)
}

// Filter selects one page of users. Deactivated users are included unless
// Active says otherwise.
type Filter struct {
	Name   string
	Email  string
	Active *bool
	Page   int
	Size   int
}

// ListUsers returns one page of users matching the filter, with their roles.
// InvalidArgument when page < 0 or size <= 0.
func (s *Service) ListUsers(ctx context.Context, f Filter) ([]view.User, error) {
	s.appCtx.Logger.Debug("ListUsers called", "page", f.Page, "size", f.Size)

	page, err := pagination.New(f.Page, f.Size)
	if err != nil {
		return nil, err
	}
	users, err := s.store.Users.List(ctx, repository.UserFilter{
		Name:   f.Name,
		Email:  f.Email,
		Active: f.Active,
		Page:   page,
	})
	if err != nil {
		return nil, svcErr.Storage(err)
	}

	ids := make([]uuid.UUID, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	roles, err := s.store.Users.RoleNamesByUsers(ctx, ids)
	if err != nil {
		return nil, svcErr.Storage(err)
	}

	out := make([]view.User, 0, len(users))
	for _, u := range users {
		out = append(out, view.FromUser(u, roles[u.ID]))
	}
	return out, nil
}

// DeactivateUser marks the user inactive. ErrUserDeactivated when it
// already is. Existing participations, solutions and likes are kept.
func (s *Service) DeactivateUser(ctx context.Context, id uuid.UUID) error {
	s.appCtx.Logger.Debug("DeactivateUser called", "user", id)

	return s.store.Transaction(ctx, func(tx *repository.Store) error {
		if _, err := service.ActiveUser(ctx, tx, id); err != nil {
			return err
		}
		return svcErr.Storage(tx.Users.UpdateFields(ctx, id, map[string]any{"active": false}))
	})
}

// GrantAdmin adds the admin role. ErrUserHasAdminRole when already held.
func (s *Service) GrantAdmin(ctx context.Context, id uuid.UUID) (*view.User, error) {
	s.appCtx.Logger.Debug("GrantAdmin called", "user", id)

	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		if _, err := service.ActiveUser(ctx, tx, id); err != nil {
			return err
		}
		roles, err := tx.Users.RoleNames(ctx, id)
		if err != nil {
			return svcErr.Storage(err)
		}
		if slices.Contains(roles, s.adminRole) {
			return svcErr.ErrUserHasAdminRole
		}

		role, err := tx.Users.RoleByName(ctx, s.adminRole)
		if err != nil {
			return svcErr.Storage(fmt.Errorf("role %q: %w", s.adminRole, err))
		}
		if err := tx.Users.AddRole(ctx, id, role.ID); err != nil {
			if svcErr.IsDuplicate(err) {
				return svcErr.ErrUserHasAdminRole
			}
			return svcErr.Storage(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetUser(ctx, id)
}

// Authenticate checks an email and password pair and returns the active
// user with its roles. Every mismatch is reported as Unauthorized.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*view.User, error) {
	u, err := s.store.Users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, svcErr.Unauthorized("invalid credentials")
		}
		return nil, svcErr.Storage(err)
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)) != nil {
		return nil, svcErr.Unauthorized("invalid credentials")
	}
	if !u.Active {
		return nil, svcErr.Rule(svcErr.ErrUserDeactivated, 0, nil)
	}
	return s.GetUser(ctx, u.ID)
}

func hashFailure(err error) error {
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return svcErr.InvalidArgument("password must be at most %d bytes", validation.MaxPasswordBytes)
	}
	return svcErr.Storage(fmt.Errorf("hash password: %w", err))
}
