package solution

import (
	"context"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oggyb/codev-api/internal/app"
	"github.com/oggyb/codev-api/internal/server"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "codev.v1.SolutionService"

// Registrar ties the Solution service into the gRPC server
type Registrar struct {
	appCtx *app.AppContext
}

// NewRegistrar creates a new Registrar for the Solution service
func NewRegistrar(appCtx *app.AppContext) *Registrar {
	return &Registrar{appCtx: appCtx}
}

// Register attaches the Solution service implementation to the gRPC server
func (r *Registrar) Register(s *grpc.Server) {
	svc := NewSolutionService(r.appCtx)
	s.RegisterService(server.NewServiceDesc(ServiceName,
		server.Method{Name: "CreateSolution", Handle: svc.handleCreate},
		server.Method{Name: "GetSolution", Handle: svc.handleGet},
		server.Method{Name: "DeleteSolution", Handle: svc.handleDelete},
	), svc)
}

type createRequest struct {
	ChallengeID   uuid.UUID `json:"challenge_id"`
	RepositoryURL string    `json:"repository_url"`
	DeployURL     string    `json:"deploy_url"`
}

type solutionRequest struct {
	ID uuid.UUID `json:"id"`
}

// The author is always the authenticated actor.
func (s *Service) handleCreate(ctx context.Context, req *structpb.Struct) (any, error) {
	actor, err := server.RequireActor(ctx)
	if err != nil {
		return nil, err
	}
	var in createRequest
	if err := server.Decode(req, &in); err != nil {
		return nil, err
	}
	return s.CreateSolution(ctx, Form{
		ChallengeID:   in.ChallengeID,
		AuthorID:      actor.ID,
		RepositoryURL: in.RepositoryURL,
		DeployURL:     in.DeployURL,
	})
}

func (s *Service) handleGet(ctx context.Context, req *structpb.Struct) (any, error) {
	var in solutionRequest
	if err := server.Decode(req, &in); err != nil {
		return nil, err
	}
	var viewer uuid.UUID
	if actor, ok := server.ActorFrom(ctx); ok {
		viewer = actor.ID
	}
	return s.GetSolution(ctx, in.ID, viewer)
}

func (s *Service) handleDelete(ctx context.Context, req *structpb.Struct) (any, error) {
	actor, err := server.RequireActor(ctx)
	if err != nil {
		return nil, err
	}
	var in solutionRequest
	if err := server.Decode(req, &in); err != nil {
		return nil, err
	}
	if err := s.DeleteSolution(ctx, in.ID, actor.ID); err != nil {
		return nil, err
	}
	return map[string]any{"deleted": true}, nil
}
