package category

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/oggyb/codev-api/internal/app"
	"github.com/oggyb/codev-api/internal/db"
	svcErr "github.com/oggyb/codev-api/internal/errors"
	"github.com/oggyb/codev-api/internal/events"
	"github.com/oggyb/codev-api/internal/repository"
	"github.com/oggyb/codev-api/internal/service"
	"github.com/oggyb/codev-api/internal/validation"
	"github.com/oggyb/codev-api/internal/view"
)

// Service owns the challenge -> category association: a challenge has at
// most one category, and a category is never deleted while referenced.
type Service struct {
	appCtx *app.AppContext
	store  *repository.Store
}

// NewCategoryService creates a new Category service with dependencies from AppContext.
func NewCategoryService(appCtx *app.AppContext) *Service {
	return &Service{appCtx: appCtx, store: appCtx.Store}
}

type categoryForm struct {
	Name string `validate:"required,max=64"`
}

// CreateCategory inserts a category. Names are unique (Conflict).
func (s *Service) CreateCategory(ctx context.Context, name string) (*view.Category, error) {
	name = strings.TrimSpace(name)
	if err := validation.Struct(categoryForm{Name: name}); err != nil {
		return nil, err
	}

	c := db.Category{Name: name}
	if err := s.store.Categories.Create(ctx, &c); err != nil {
		if svcErr.IsDuplicate(err) {
			return nil, svcErr.Conflict("category %q already exists", name)
		}
		return nil, svcErr.Storage(err)
	}

	v := view.FromCategory(c)
	return &v, nil
}

// RenameCategory changes a category's name.
func (s *Service) RenameCategory(ctx context.Context, id uuid.UUID, name string) (*view.Category, error) {
	name = strings.TrimSpace(name)
	if err := validation.Struct(categoryForm{Name: name}); err != nil {
		return nil, err
	}

	ok, err := s.store.Categories.Rename(ctx, id, name)
	if err != nil {
		if svcErr.IsDuplicate(err) {
			return nil, svcErr.Conflict("category %q already exists", name)
		}
		return nil, svcErr.Storage(err)
	}
	if !ok {
		return nil, svcErr.NotFound("category %s not found", id)
	}
	return &view.Category{ID: id, Name: name}, nil
}

// ListCategories returns every category ordered by name.
func (s *Service) ListCategories(ctx context.Context) ([]view.Category, error) {
	categories, err := s.store.Categories.FindAll(ctx)
	if err != nil {
		return nil, svcErr.Storage(err)
	}
	out := make([]view.Category, 0, len(categories))
	for _, c := range categories {
		out = append(out, view.FromCategory(c))
	}
	return out, nil
}

// AssignCategory sets the category of a challenge that has none.
//
// Behavior:
//   - NotFound when either id does not resolve.
//   - ErrCategoryAlreadyAssigned (Conflict) when a category is already set;
//     callers must RemoveCategory first.
//   - Returns the updated challenge view.
func (s *Service) AssignCategory(ctx context.Context, challengeID, categoryID uuid.UUID) (*view.Challenge, error) {
	s.appCtx.Logger.Debug("AssignCategory called", "challenge", challengeID, "category", categoryID)

	var out view.Challenge
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		challenge, err := tx.Challenges.FindByIDForUpdate(ctx, challengeID)
		if err != nil {
			return service.Lookup(err, "challenge %s not found", challengeID)
		}
		category, err := tx.Categories.FindByID(ctx, categoryID)
		if err != nil {
			return service.Lookup(err, "category %s not found", categoryID)
		}
		if challenge.CategoryID != nil {
			return svcErr.ErrCategoryAlreadyAssigned
		}

		assigned, err := tx.Challenges.AssignCategory(ctx, challengeID, categoryID)
		if err != nil {
			return svcErr.Storage(err)
		}
		if !assigned {
			// lost a race against a concurrent assign
			return svcErr.ErrCategoryAlreadyAssigned
		}

		techs, err := tx.Challenges.TechnologiesByChallenge(ctx, []uuid.UUID{challengeID})
		if err != nil {
			return svcErr.Storage(err)
		}
		challenge.CategoryID = &categoryID
		out = view.FromChallenge(*challenge, category, techs[challengeID])
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// RemoveCategory clears the category of a challenge. Safe when none is set.
func (s *Service) RemoveCategory(ctx context.Context, challengeID uuid.UUID) (*view.Challenge, error) {
	s.appCtx.Logger.Debug("RemoveCategory called", "challenge", challengeID)

	var out view.Challenge
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		challenge, err := tx.Challenges.FindByIDForUpdate(ctx, challengeID)
		if err != nil {
			return service.Lookup(err, "challenge %s not found", challengeID)
		}
		if err := tx.Challenges.ClearCategory(ctx, challengeID); err != nil {
			return svcErr.Storage(err)
		}

		techs, err := tx.Challenges.TechnologiesByChallenge(ctx, []uuid.UUID{challengeID})
		if err != nil {
			return svcErr.Storage(err)
		}
		challenge.CategoryID = nil
		out = view.FromChallenge(*challenge, nil, techs[challengeID])
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteCategory detaches the category from every challenge and removes it,
// as one unit of work. Readers see either both effects or neither.
func (s *Service) DeleteCategory(ctx context.Context, categoryID uuid.UUID) error {
	s.appCtx.Logger.Debug("DeleteCategory called", "category", categoryID)

	var detached int64
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		if _, err := tx.Categories.FindByID(ctx, categoryID); err != nil {
			return service.Lookup(err, "category %s not found", categoryID)
		}

		n, err := tx.Challenges.DetachCategory(ctx, categoryID)
		if err != nil {
			return svcErr.Storage(err)
		}
		deleted, err := tx.Categories.Delete(ctx, categoryID)
		if err != nil {
			return svcErr.Storage(err)
		}
		if !deleted {
			return svcErr.NotFound("category %s not found", categoryID)
		}
		detached = n
		return nil
	})
	if err != nil {
		s.appCtx.Logger.Error("DeleteCategory failed", "category", categoryID, "err", err)
		return err
	}

	service.Emit(ctx, s.appCtx, events.Event{
		Type:       events.CategoryDeleted,
		CategoryID: categoryID,
		Count:      detached,
	})
	return nil
}
