package challenge

import (
	"context"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/oggyb/codev-api/internal/app"
	"github.com/oggyb/codev-api/internal/db"
	svcErr "github.com/oggyb/codev-api/internal/errors"
	"github.com/oggyb/codev-api/internal/repository"
	"github.com/oggyb/codev-api/internal/service"
	"github.com/oggyb/codev-api/internal/utils/pagination"
	"github.com/oggyb/codev-api/internal/validation"
	"github.com/oggyb/codev-api/internal/view"
)

// Service implements challenge management and the challenge query engine.
// The category of a challenge is owned by the category service and is not
// writable here, except once at creation.
type Service struct {
	appCtx *app.AppContext
	store  *repository.Store
}

// NewChallengeService creates a new Challenge service with dependencies from AppContext.
func NewChallengeService(appCtx *app.AppContext) *Service {
	return &Service{appCtx: appCtx, store: appCtx.Store}
}

// Form is the input of CreateChallenge. An empty Status means TO_BEGIN.
type Form struct {
	Title         string             `validate:"required,max=255"`
	Description   string             `validate:"max=10000"`
	ImageURL      string             `validate:"omitempty,url,max=512"`
	Status        db.ChallengeStatus `validate:"omitempty,oneof=TO_BEGIN IN_PROGRESS DONE"`
	AuthorID      uuid.UUID          `validate:"required"`
	CategoryID    *uuid.UUID
	TechnologyIDs []uuid.UUID
}

// Patch updates only the fields that are set.
type Patch struct {
	Title       *string             `validate:"omitnil,min=1,max=255"`
	Description *string             `validate:"omitnil,max=10000"`
	ImageURL    *string             `validate:"omitzero,url,max=512"`
	Status      *db.ChallengeStatus `validate:"omitnil,oneof=TO_BEGIN IN_PROGRESS DONE"`
}

func (p Patch) fields() map[string]any {
	fields := map[string]any{}
	if p.Title != nil {
		fields["title"] = *p.Title
	}
	if p.Description != nil {
		fields["description"] = *p.Description
	}
	if p.ImageURL != nil {
		fields["image_url"] = *p.ImageURL
	}
	if p.Status != nil {
		fields["status"] = *p.Status
	}
	return fields
}

// CreateChallenge persists a challenge with its optional category and
// technology set.
//
// Behavior:
//   - NotFound when the author, the category or any technology is missing.
//   - ErrUserDeactivated when the author is deactivated.
//   - Duplicate technology ids collapse into one association.
func (s *Service) CreateChallenge(ctx context.Context, form Form) (*view.Challenge, error) {
	s.appCtx.Logger.Debug("CreateChallenge called", "title", form.Title, "author", form.AuthorID)

	form.Title = strings.TrimSpace(form.Title)
	if err := validation.Struct(form); err != nil {
		return nil, err
	}
	if form.Status == "" {
		form.Status = db.StatusToBegin
	}
	techIDs := unique(form.TechnologyIDs)

	var challengeID uuid.UUID
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		if _, err := service.ActiveUser(ctx, tx, form.AuthorID); err != nil {
			return err
		}
		if form.CategoryID != nil {
			if _, err := tx.Categories.FindByID(ctx, *form.CategoryID); err != nil {
				return service.Lookup(err, "category %s not found", *form.CategoryID)
			}
		}
		if len(techIDs) > 0 {
			n, err := tx.Technologies.CountByIDs(ctx, techIDs)
			if err != nil {
				return svcErr.Storage(err)
			}
			if n != int64(len(techIDs)) {
				return svcErr.NotFound("one or more technologies not found")
			}
		}

		c := db.Challenge{
			Title:       form.Title,
			Description: form.Description,
			ImageURL:    form.ImageURL,
			Status:      form.Status,
			Active:      true,
			AuthorID:    form.AuthorID,
			CategoryID:  form.CategoryID,
		}
		if err := tx.Challenges.Create(ctx, &c); err != nil {
			return svcErr.Storage(err)
		}
		for _, id := range techIDs {
			if err := tx.Challenges.AddTechnology(ctx, c.ID, id); err != nil {
				return svcErr.Storage(err)
			}
		}
		challengeID = c.ID
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetChallenge(ctx, challengeID)
}

// GetChallenge returns a challenge with its category and technology set.
func (s *Service) GetChallenge(ctx context.Context, id uuid.UUID) (*view.Challenge, error) {
	c, err := s.store.Challenges.FindByID(ctx, id)
	if err != nil {
		return nil, service.Lookup(err, "challenge %s not found", id)
	}
	views, err := s.assemble(ctx, []db.Challenge{*c})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// UpdateChallenge applies a patch. An empty patch returns the challenge unchanged.
func (s *Service) UpdateChallenge(ctx context.Context, id uuid.UUID, patch Patch) (*view.Challenge, error) {
	s.appCtx.Logger.Debug("UpdateChallenge called", "challenge", id)

	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		patch.Title = &title
	}
	if err := validation.Struct(patch); err != nil {
		return nil, err
	}
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		if _, err := tx.Challenges.FindByIDForUpdate(ctx, id); err != nil {
			return service.Lookup(err, "challenge %s not found", id)
		}
		return svcErr.Storage(tx.Challenges.UpdateFields(ctx, id, patch.fields()))
	})
	if err != nil {
		return nil, err
	}
	return s.GetChallenge(ctx, id)
}

// DeactivateChallenge marks a challenge inactive. New participants are
// refused afterwards; existing rows are kept.
func (s *Service) DeactivateChallenge(ctx context.Context, id uuid.UUID) error {
	s.appCtx.Logger.Debug("DeactivateChallenge called", "challenge", id)

	return s.store.Transaction(ctx, func(tx *repository.Store) error {
		if _, err := tx.Challenges.FindByIDForUpdate(ctx, id); err != nil {
			return service.Lookup(err, "challenge %s not found", id)
		}
		return svcErr.Storage(tx.Challenges.UpdateFields(ctx, id, map[string]any{"active": false}))
	})
}

// AddTechnology links a technology to a challenge. Conflict when already linked.
func (s *Service) AddTechnology(ctx context.Context, challengeID, technologyID uuid.UUID) (*view.Challenge, error) {
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		if _, err := tx.Challenges.FindByID(ctx, challengeID); err != nil {
			return service.Lookup(err, "challenge %s not found", challengeID)
		}
		if _, err := tx.Technologies.FindByID(ctx, technologyID); err != nil {
			return service.Lookup(err, "technology %s not found", technologyID)
		}
		if err := tx.Challenges.AddTechnology(ctx, challengeID, technologyID); err != nil {
			if svcErr.IsDuplicate(err) {
				return svcErr.Conflict("technology %s already linked to challenge %s", technologyID, challengeID)
			}
			return svcErr.Storage(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetChallenge(ctx, challengeID)
}

// RemoveTechnology unlinks a technology. NotFound when it was not linked.
func (s *Service) RemoveTechnology(ctx context.Context, challengeID, technologyID uuid.UUID) (*view.Challenge, error) {
	removed, err := s.store.Challenges.RemoveTechnology(ctx, challengeID, technologyID)
	if err != nil {
		return nil, svcErr.Storage(err)
	}
	if !removed {
		return nil, svcErr.NotFound("technology %s is not linked to challenge %s", technologyID, challengeID)
	}
	return s.GetChallenge(ctx, challengeID)
}

// ListTechnologies returns the technology set of one challenge.
func (s *Service) ListTechnologies(ctx context.Context, challengeID uuid.UUID) ([]view.Technology, error) {
	if _, err := s.store.Challenges.FindByID(ctx, challengeID); err != nil {
		return nil, service.Lookup(err, "challenge %s not found", challengeID)
	}
	techs, err := s.store.Technologies.FindByChallenge(ctx, challengeID)
	if err != nil {
		return nil, svcErr.Storage(err)
	}
	return view.FromTechnologies(techs), nil
}

// Query selects one page of challenges.
type Query struct {
	Page int
	Size int
	// CategoryID narrows the listing; nil spans every category.
	CategoryID *uuid.UUID
	// OrderBy is NEWEST (default), OLDEST, TITLE_ASC or TITLE_DESC.
	OrderBy string
}

// ListChallenges returns one page of challenges, each with its category and
// technology set.
//
// Behavior:
//   - InvalidArgument when page < 0, size <= 0 or OrderBy is unknown.
//   - Ties in the order key are broken by id ascending, so consecutive
//     pages never overlap.
//   - Categories and technologies are resolved once for the whole page.
func (s *Service) ListChallenges(ctx context.Context, q Query) ([]view.Challenge, error) {
	s.appCtx.Logger.Debug("ListChallenges called", "page", q.Page, "size", q.Size, "order", q.OrderBy)

	page, err := pagination.New(q.Page, q.Size)
	if err != nil {
		return nil, err
	}
	order, ok := repository.ParseOrderBy(q.OrderBy)
	if !ok {
		return nil, svcErr.InvalidArgument("unknown order %q", q.OrderBy)
	}

	challenges, err := s.store.Challenges.List(ctx, repository.ChallengeFilter{
		CategoryID: q.CategoryID,
		OrderBy:    order,
		Page:       page,
	})
	if err != nil {
		s.appCtx.Logger.Error("List challenges failed", "err", err)
		return nil, svcErr.Storage(err)
	}
	return s.assemble(ctx, challenges)
}

// ListChallengesByCategory is ListChallenges filtered by an existing
// category, newest first.
func (s *Service) ListChallengesByCategory(ctx context.Context, categoryID uuid.UUID, page, size int) ([]view.Challenge, error) {
	if _, err := s.store.Categories.FindByID(ctx, categoryID); err != nil {
		return nil, service.Lookup(err, "category %s not found", categoryID)
	}
	return s.ListChallenges(ctx, Query{Page: page, Size: size, CategoryID: &categoryID})
}

// assemble resolves categories and technologies for a batch of challenges
// with one query each.
func (s *Service) assemble(ctx context.Context, challenges []db.Challenge) ([]view.Challenge, error) {
	ids := make([]uuid.UUID, 0, len(challenges))
	var categoryIDs []uuid.UUID
	for _, c := range challenges {
		ids = append(ids, c.ID)
		if c.CategoryID != nil {
			categoryIDs = append(categoryIDs, *c.CategoryID)
		}
	}

	categories, err := s.store.Categories.FindByIDs(ctx, unique(categoryIDs))
	if err != nil {
		return nil, svcErr.Storage(err)
	}
	techs, err := s.store.Challenges.TechnologiesByChallenge(ctx, ids)
	if err != nil {
		return nil, svcErr.Storage(err)
	}

	out := make([]view.Challenge, 0, len(challenges))
	for _, c := range challenges {
		var category *db.Category
		if c.CategoryID != nil {
			// a category deleted between the two reads resolves to none
			if cat, ok := categories[*c.CategoryID]; ok {
				category = &cat
			}
		}
		out = append(out, view.FromChallenge(c, category, techs[c.ID]))
	}
	return out, nil
}

func unique(ids []uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}
