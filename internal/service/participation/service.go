package participation

import (
	"context"

	"github.com/google/uuid"

	"github.com/oggyb/codev-api/internal/app"
	svcErr "github.com/oggyb/codev-api/internal/errors"
	"github.com/oggyb/codev-api/internal/events"
	"github.com/oggyb/codev-api/internal/repository"
	"github.com/oggyb/codev-api/internal/service"
)

// Service manages challenge membership. Membership is a set: a user is a
// participant of a challenge at most once.
type Service struct {
	appCtx *app.AppContext
	store  *repository.Store
}

// NewParticipationService creates a new Participation service with dependencies from AppContext.
func NewParticipationService(appCtx *app.AppContext) *Service {
	return &Service{appCtx: appCtx, store: appCtx.Store}
}

// Join adds participantID to the challenge's participants.
//
// Behavior:
//   - ErrJoinNotAccepted when the challenge is missing or inactive, the user
//     is missing or deactivated, or the user already participates.
//   - The error kind tells the cases apart: NotFound for missing rows,
//     Conflict otherwise. The cause is attached.
func (s *Service) Join(ctx context.Context, challengeID, participantID uuid.UUID) error {
	s.appCtx.Logger.Debug("Join called", "challenge", challengeID, "participant", participantID)

	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		challenge, err := tx.Challenges.FindByID(ctx, challengeID)
		if err != nil {
			return rejectJoin(service.Lookup(err, "challenge %s not found", challengeID))
		}
		if !challenge.Active {
			return svcErr.Rule(svcErr.ErrJoinNotAccepted, svcErr.KindConflict, svcErr.Conflict("challenge %s is inactive", challengeID))
		}
		if _, err := service.ActiveUser(ctx, tx, participantID); err != nil {
			return rejectJoin(err)
		}

		if err := tx.Participations.Add(ctx, challengeID, participantID); err != nil {
			if svcErr.IsDuplicate(err) {
				return svcErr.Rule(svcErr.ErrJoinNotAccepted, svcErr.KindConflict, svcErr.Conflict("user %s already participates", participantID))
			}
			return svcErr.Storage(err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	service.Emit(ctx, s.appCtx, events.Event{
		Type:        events.ChallengeJoined,
		ActorID:     participantID,
		ChallengeID: challengeID,
	})
	return nil
}

// Unjoin removes the membership. ErrUnjoinNotAccepted when none exists.
func (s *Service) Unjoin(ctx context.Context, challengeID, participantID uuid.UUID) error {
	s.appCtx.Logger.Debug("Unjoin called", "challenge", challengeID, "participant", participantID)

	removed, err := s.store.Participations.Remove(ctx, challengeID, participantID)
	if err != nil {
		s.appCtx.Logger.Error("Unjoin failed", "err", err)
		return svcErr.Storage(err)
	}
	if !removed {
		return svcErr.Rule(svcErr.ErrUnjoinNotAccepted, 0, svcErr.NotFound("user %s does not participate", participantID))
	}

	service.Emit(ctx, s.appCtx, events.Event{
		Type:        events.ChallengeUnjoined,
		ActorID:     participantID,
		ChallengeID: challengeID,
	})
	return nil
}

// IsParticipant reports whether participantID is a member of the challenge.
func (s *Service) IsParticipant(ctx context.Context, challengeID, participantID uuid.UUID) (bool, error) {
	if _, err := s.store.Challenges.FindByID(ctx, challengeID); err != nil {
		return false, service.Lookup(err, "challenge %s not found", challengeID)
	}
	ok, err := s.store.Participations.Exists(ctx, challengeID, participantID)
	if err != nil {
		return false, svcErr.Storage(err)
	}
	return ok, nil
}

// CountParticipants returns the size of the challenge's participant set.
func (s *Service) CountParticipants(ctx context.Context, challengeID uuid.UUID) (int64, error) {
	if _, err := s.store.Challenges.FindByID(ctx, challengeID); err != nil {
		return 0, service.Lookup(err, "challenge %s not found", challengeID)
	}
	n, err := s.store.Participations.CountByChallenge(ctx, challengeID)
	if err != nil {
		return 0, svcErr.Storage(err)
	}
	return n, nil
}

// rejectJoin wraps a lookup failure as ErrJoinNotAccepted, keeping its kind.
// Storage failures pass through unchanged.
func rejectJoin(cause error) error {
	kind := svcErr.KindOf(cause)
	if kind == svcErr.KindStorageFailure {
		return cause
	}
	return svcErr.Rule(svcErr.ErrJoinNotAccepted, kind, cause)
}
