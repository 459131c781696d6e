package engagement

import (
	"context"

	"github.com/google/uuid"

	"github.com/oggyb/codev-api/internal/app"
	svcErr "github.com/oggyb/codev-api/internal/errors"
	"github.com/oggyb/codev-api/internal/events"
	"github.com/oggyb/codev-api/internal/metrics"
	"github.com/oggyb/codev-api/internal/repository"
	"github.com/oggyb/codev-api/internal/service"
	"github.com/oggyb/codev-api/internal/utils/pagination"
	"github.com/oggyb/codev-api/internal/view"
)

// Service implements likes on solutions and the engagement-aware solution
// listing.
type Service struct {
	appCtx *app.AppContext
	store  *repository.Store
}

// NewEngagementService creates a new Engagement service with dependencies from AppContext.
// Dependencies include:
//   - the Store for like rows and the engagement query
//   - RedisCache (optional) to serialize toggles of the same pair across instances
func NewEngagementService(appCtx *app.AppContext) *Service {
	return &Service{appCtx: appCtx, store: appCtx.Store}
}

// AddLike records that userID likes solutionID.
//
// Behavior:
//   - NotFound when the solution or the user does not exist.
//   - ErrUserDeactivated for deactivated users.
//   - ErrLikeNotAccepted when the pair is already liked, including a
//     concurrent add that won the race.
//   - ErrLikeToggleInProgress while another toggle of the pair holds the lock.
//   - Authors may like their own solution.
func (s *Service) AddLike(ctx context.Context, solutionID, userID uuid.UUID) (*view.Like, error) {
	s.appCtx.Logger.Debug("AddLike called", "solution", solutionID, "user", userID)

	release, err := s.lock(ctx, solutionID, userID)
	if err != nil {
		return nil, err
	}
	defer release()

	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		if _, err := tx.Solutions.FindByID(ctx, solutionID); err != nil {
			return service.Lookup(err, "solution %s not found", solutionID)
		}
		if _, err := service.ActiveUser(ctx, tx, userID); err != nil {
			return err
		}

		liked, err := tx.Likes.HasLiked(ctx, solutionID, userID)
		if err != nil {
			return svcErr.Storage(err)
		}
		if liked {
			return svcErr.Rule(svcErr.ErrLikeNotAccepted, 0, svcErr.Conflict("solution already liked"))
		}

		if err := tx.Likes.Add(ctx, solutionID, userID); err != nil {
			if svcErr.IsDuplicate(err) {
				return svcErr.Rule(svcErr.ErrLikeNotAccepted, 0, err)
			}
			return svcErr.Storage(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	service.Emit(ctx, s.appCtx, events.Event{
		Type:       events.SolutionLiked,
		ActorID:    userID,
		SolutionID: solutionID,
	})
	return &view.Like{SolutionID: solutionID, UserID: userID, Liked: true}, nil
}

// RemoveLike withdraws a like. ErrLikeNotAccepted when the pair is not liked.
func (s *Service) RemoveLike(ctx context.Context, solutionID, userID uuid.UUID) (*view.Like, error) {
	s.appCtx.Logger.Debug("RemoveLike called", "solution", solutionID, "user", userID)

	release, err := s.lock(ctx, solutionID, userID)
	if err != nil {
		return nil, err
	}
	defer release()

	removed, err := s.store.Likes.Remove(ctx, solutionID, userID)
	if err != nil {
		s.appCtx.Logger.Error("RemoveLike failed", "err", err)
		return nil, svcErr.Storage(err)
	}
	if !removed {
		return nil, svcErr.Rule(svcErr.ErrLikeNotAccepted, 0, svcErr.Conflict("solution not liked"))
	}

	service.Emit(ctx, s.appCtx, events.Event{
		Type:       events.SolutionUnliked,
		ActorID:    userID,
		SolutionID: solutionID,
	})
	return &view.Like{SolutionID: solutionID, UserID: userID, Liked: false}, nil
}

// ListQuery selects one page of a challenge's solutions as seen by Viewer.
type ListQuery struct {
	ChallengeID uuid.UUID
	ViewerID    uuid.UUID
	Page        int
	Size        int
	// Order is ID_ASC (default) or MOST_LIKED.
	Order string
}

// ListSolutionsForChallenge returns one page of solutions with likes and
// likedByViewer.
//
// Behavior:
//   - InvalidArgument when page < 0, size <= 0 or the order is unknown.
//   - likes counts distinct likers; the author's own like counts.
//   - liked is false whenever the viewer is the solution's author.
//   - A challenge with no solutions (or no such challenge) yields an empty page.
func (s *Service) ListSolutionsForChallenge(ctx context.Context, q ListQuery) ([]view.Solution, error) {
	s.appCtx.Logger.Debug("ListSolutionsForChallenge called", "challenge", q.ChallengeID, "page", q.Page, "size", q.Size)

	page, err := pagination.New(q.Page, q.Size)
	if err != nil {
		return nil, err
	}
	order, ok := repository.ParseSolutionOrder(q.Order)
	if !ok {
		return nil, svcErr.InvalidArgument("unknown order %q", q.Order)
	}

	rows, err := s.store.Solutions.ListForChallenge(ctx, q.ChallengeID, q.ViewerID, page, order)
	if err != nil {
		s.appCtx.Logger.Error("ListForChallenge failed", "err", err)
		return nil, svcErr.Storage(err)
	}

	out := make([]view.Solution, 0, len(rows))
	for _, r := range rows {
		out = append(out, view.FromSolutionRow(r))
	}
	return out, nil
}

// CountLikes returns the number of distinct likers of a solution.
func (s *Service) CountLikes(ctx context.Context, solutionID uuid.UUID) (int64, error) {
	if _, err := s.store.Solutions.FindByID(ctx, solutionID); err != nil {
		return 0, service.Lookup(err, "solution %s not found", solutionID)
	}
	n, err := s.store.Likes.CountBySolution(ctx, solutionID)
	if err != nil {
		return 0, svcErr.Storage(err)
	}
	return n, nil
}

// lock serializes toggles of one (solution, user) pair across instances.
// Without Redis, or when Redis is unreachable, the composite key of the
// likes table is the only guard.
func (s *Service) lock(ctx context.Context, solutionID, userID uuid.UUID) (func(), error) {
	noop := func() {}
	rc := s.appCtx.RedisCache
	if rc == nil {
		return noop, nil
	}

	release, ok, err := rc.TryLock(ctx, rc.KeyForLikeToggle(solutionID, userID))
	if err != nil {
		s.appCtx.Logger.Warn("like lock unavailable, continuing without it", "err", err)
		return noop, nil
	}
	if !ok {
		metrics.LockContentionTotal.Inc()
		return nil, svcErr.ErrLikeToggleInProgress
	}
	return release, nil
}
