package participation

import (
	"context"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oggyb/codev-api/internal/app"
	"github.com/oggyb/codev-api/internal/server"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "codev.v1.ParticipationService"

// Registrar ties the Participation service into the gRPC server
type Registrar struct {
	appCtx *app.AppContext
}

// NewRegistrar creates a new Registrar for the Participation service
func NewRegistrar(appCtx *app.AppContext) *Registrar {
	return &Registrar{appCtx: appCtx}
}

// Register attaches the Participation service implementation to the gRPC server
func (r *Registrar) Register(s *grpc.Server) {
	svc := NewParticipationService(r.appCtx)
	s.RegisterService(server.NewServiceDesc(ServiceName,
		server.Method{Name: "Join", Handle: svc.handleJoin},
		server.Method{Name: "Unjoin", Handle: svc.handleUnjoin},
		server.Method{Name: "CountParticipants", Handle: svc.handleCount},
	), svc)
}

// The participant is always the authenticated actor.
type membershipRequest struct {
	ChallengeID uuid.UUID `json:"challenge_id"`
}

func (s *Service) handleJoin(ctx context.Context, req *structpb.Struct) (any, error) {
	actor, err := server.RequireActor(ctx)
	if err != nil {
		return nil, err
	}
	var in membershipRequest
	if err := server.Decode(req, &in); err != nil {
		return nil, err
	}
	if err := s.Join(ctx, in.ChallengeID, actor.ID); err != nil {
		return nil, err
	}
	return map[string]any{"joined": true}, nil
}

func (s *Service) handleUnjoin(ctx context.Context, req *structpb.Struct) (any, error) {
	actor, err := server.RequireActor(ctx)
	if err != nil {
		return nil, err
	}
	var in membershipRequest
	if err := server.Decode(req, &in); err != nil {
		return nil, err
	}
	if err := s.Unjoin(ctx, in.ChallengeID, actor.ID); err != nil {
		return nil, err
	}
	return map[string]any{"unjoined": true}, nil
}

func (s *Service) handleCount(ctx context.Context, req *structpb.Struct) (any, error) {
	var in membershipRequest
	if err := server.Decode(req, &in); err != nil {
		return nil, err
	}
	n, err := s.CountParticipants(ctx, in.ChallengeID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"count": n}, nil
}
