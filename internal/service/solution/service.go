package solution

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/oggyb/codev-api/internal/app"
	"github.com/oggyb/codev-api/internal/db"
	svcErr "github.com/oggyb/codev-api/internal/errors"
	"github.com/oggyb/codev-api/internal/events"
	"github.com/oggyb/codev-api/internal/repository"
	"github.com/oggyb/codev-api/internal/service"
	"github.com/oggyb/codev-api/internal/validation"
	"github.com/oggyb/codev-api/internal/view"
)

// Service manages solutions. A solution belongs to exactly one challenge
// and owns its like rows: they never outlive it.
type Service struct {
	appCtx *app.AppContext
	store  *repository.Store
}

// NewSolutionService creates a new Solution service with dependencies from AppContext.
func NewSolutionService(appCtx *app.AppContext) *Service {
	return &Service{appCtx: appCtx, store: appCtx.Store}
}

// Form is the input of CreateSolution.
type Form struct {
	ChallengeID   uuid.UUID `validate:"required"`
	AuthorID      uuid.UUID `validate:"required"`
	RepositoryURL string    `validate:"omitempty,url,max=512"`
	DeployURL     string    `validate:"omitempty,url,max=512"`
}

// CreateSolution persists a solution for an existing challenge.
//
// Behavior:
//   - NotFound when the challenge or the author does not exist.
//   - ErrUserDeactivated when the author is deactivated.
//   - The new solution starts with zero likes.
func (s *Service) CreateSolution(ctx context.Context, form Form) (*view.Solution, error) {
	s.appCtx.Logger.Debug("CreateSolution called", "challenge", form.ChallengeID, "author", form.AuthorID)

	form.RepositoryURL = strings.TrimSpace(form.RepositoryURL)
	form.DeployURL = strings.TrimSpace(form.DeployURL)
	if err := validation.Struct(form); err != nil {
		return nil, err
	}

	var out view.Solution
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		if _, err := tx.Challenges.FindByID(ctx, form.ChallengeID); err != nil {
			return service.Lookup(err, "challenge %s not found", form.ChallengeID)
		}
		if _, err := service.ActiveUser(ctx, tx, form.AuthorID); err != nil {
			return err
		}

		sol := db.Solution{
			ChallengeID:   form.ChallengeID,
			AuthorID:      form.AuthorID,
			RepositoryURL: form.RepositoryURL,
			DeployURL:     form.DeployURL,
		}
		if err := tx.Solutions.Create(ctx, &sol); err != nil {
			return svcErr.Storage(err)
		}

		row, err := tx.Solutions.FindRow(ctx, sol.ID, form.AuthorID)
		if err != nil {
			return svcErr.Storage(err)
		}
		out = view.FromSolutionRow(*row)
		return nil
	})
	if err != nil {
		return nil, err
	}

	service.Emit(ctx, s.appCtx, events.Event{
		Type:        events.SolutionCreated,
		ActorID:     form.AuthorID,
		ChallengeID: form.ChallengeID,
		SolutionID:  out.ID,
	})
	return &out, nil
}

// GetSolution returns one solution with engagement computed for viewerID.
func (s *Service) GetSolution(ctx context.Context, solutionID, viewerID uuid.UUID) (*view.Solution, error) {
	row, err := s.store.Solutions.FindRow(ctx, solutionID, viewerID)
	if err != nil {
		return nil, service.Lookup(err, "solution %s not found", solutionID)
	}
	v := view.FromSolutionRow(*row)
	return &v, nil
}

// DeleteSolution removes a solution owned by authorID together with every
// like on it, as one unit of work.
//
// Behavior:
//   - ErrSolutionNotDeleted with kind NotFound when the solution does not
//     exist or belongs to someone else.
//   - ErrSolutionNotDeleted with kind StorageFailure when any step fails;
//     nothing is removed in that case.
func (s *Service) DeleteSolution(ctx context.Context, solutionID, authorID uuid.UUID) error {
	s.appCtx.Logger.Debug("DeleteSolution called", "solution", solutionID, "author", authorID)

	var removedLikes int64
	var challengeID uuid.UUID
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		sol, err := tx.Solutions.FindOwnedForUpdate(ctx, solutionID, authorID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return svcErr.Rule(svcErr.ErrSolutionNotDeleted, svcErr.KindNotFound,
					svcErr.NotFound("solution %s not found for author %s", solutionID, authorID))
			}
			return svcErr.Rule(svcErr.ErrSolutionNotDeleted, svcErr.KindStorageFailure, err)
		}
		challengeID = sol.ChallengeID

		n, err := tx.Likes.RemoveBySolution(ctx, solutionID)
		if err != nil {
			return svcErr.Rule(svcErr.ErrSolutionNotDeleted, svcErr.KindStorageFailure, err)
		}
		deleted, err := tx.Solutions.Delete(ctx, solutionID, authorID)
		if err != nil {
			return svcErr.Rule(svcErr.ErrSolutionNotDeleted, svcErr.KindStorageFailure, err)
		}
		if !deleted {
			return svcErr.Rule(svcErr.ErrSolutionNotDeleted, svcErr.KindNotFound,
				svcErr.NotFound("solution %s not found for author %s", solutionID, authorID))
		}
		removedLikes = n
		return nil
	})
	if err != nil {
		s.appCtx.Logger.Error("DeleteSolution failed", "solution", solutionID, "err", err)
		return err
	}

	service.Emit(ctx, s.appCtx, events.Event{
		Type:        events.SolutionDeleted,
		ActorID:     authorID,
		ChallengeID: challengeID,
		SolutionID:  solutionID,
		Count:       removedLikes,
	})
	return nil
}
