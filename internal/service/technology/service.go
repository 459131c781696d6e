package technology

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/oggyb/codev-api/internal/app"
	"github.com/oggyb/codev-api/internal/db"
	svcErr "github.com/oggyb/codev-api/internal/errors"
	"github.com/oggyb/codev-api/internal/repository"
	"github.com/oggyb/codev-api/internal/service"
	"github.com/oggyb/codev-api/internal/validation"
	"github.com/oggyb/codev-api/internal/view"
)

// Service manages the technology catalog.
type Service struct {
	appCtx *app.AppContext
	store  *repository.Store
}

// NewTechnologyService creates a new Technology service with dependencies from AppContext.
func NewTechnologyService(appCtx *app.AppContext) *Service {
	return &Service{appCtx: appCtx, store: appCtx.Store}
}

// Form is the input of CreateTechnology. Color is six hex digits, no '#'.
type Form struct {
	Name              string `validate:"required,max=64"`
	Description       string `validate:"max=512"`
	DocumentationLink string `validate:"omitempty,url,max=512"`
	Color             string `validate:"required,hexcolor6"`
}

type Patch struct {
	Name              *string `validate:"omitnil,min=1,max=64"`
	Description       *string `validate:"omitnil,max=512"`
	DocumentationLink *string `validate:"omitempty,url,max=512"`
	Color             *string `validate:"omitnil,hexcolor6"`
}

func (p *Patch) normalize() {
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		p.Name = &name
	}
	if p.Color != nil {
		color := strings.TrimPrefix(strings.TrimSpace(*p.Color), "#")
		p.Color = &color
	}
}

func (p Patch) fields() map[string]any {
	fields := map[string]any{}
	if p.Name != nil {
		fields["name"] = *p.Name
	}
	if p.Description != nil {
		fields["description"] = *p.Description
	}
	if p.DocumentationLink != nil {
		fields["documentation_link"] = *p.DocumentationLink
	}
	if p.Color != nil {
		fields["color"] = strings.ToUpper(*p.Color)
	}
	return fields
}

// CreateTechnology validates and inserts a technology. Names are unique.
func (s *Service) CreateTechnology(ctx context.Context, form Form) (*view.Technology, error) {
	form.Name = strings.TrimSpace(form.Name)
	form.Color = strings.TrimPrefix(strings.TrimSpace(form.Color), "#")
	if err := validation.Struct(form); err != nil {
		return nil, err
	}

	t := db.Technology{
		Name:              form.Name,
		Description:       form.Description,
		DocumentationLink: form.DocumentationLink,
		Color:             strings.ToUpper(form.Color),
	}
	if err := s.store.Technologies.Create(ctx, &t); err != nil {
		if svcErr.IsDuplicate(err) {
			return nil, svcErr.Conflict("technology %q already exists", form.Name)
		}
		return nil, svcErr.Storage(err)
	}
	v := view.FromTechnology(t)
	return &v, nil
}

// UpdateTechnology applies a patch; only set fields change.
func (s *Service) UpdateTechnology(ctx context.Context, id uuid.UUID, patch Patch) (*view.Technology, error) {
	patch.normalize()
	if err := validation.Struct(patch); err != nil {
		return nil, err
	}

	var out view.Technology
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		if _, err := tx.Technologies.FindByID(ctx, id); err != nil {
			return service.Lookup(err, "technology %s not found", id)
		}
		if err := tx.Technologies.UpdateFields(ctx, id, patch.fields()); err != nil {
			if svcErr.IsDuplicate(err) {
				return svcErr.Conflict("technology %q already exists", *patch.Name)
			}
			return svcErr.Storage(err)
		}
		t, err := tx.Technologies.FindByID(ctx, id)
		if err != nil {
			return svcErr.Storage(err)
		}
		out = view.FromTechnology(*t)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteTechnology removes the technology and its challenge links together.
func (s *Service) DeleteTechnology(ctx context.Context, id uuid.UUID) error {
	s.appCtx.Logger.Debug("DeleteTechnology called", "technology", id)

	return s.store.Transaction(ctx, func(tx *repository.Store) error {
		deleted, err := tx.Technologies.Delete(ctx, id)
		if err != nil {
			return svcErr.Storage(err)
		}
		if !deleted {
			return svcErr.NotFound("technology %s not found", id)
		}
		return nil
	})
}

// ListTechnologies returns the catalog ordered by name.
func (s *Service) ListTechnologies(ctx context.Context) ([]view.Technology, error) {
	techs, err := s.store.Technologies.FindAll(ctx)
	if err != nil {
		return nil, svcErr.Storage(err)
	}
	return view.FromTechnologies(techs), nil
}
