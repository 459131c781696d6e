package engagement

import (
	"context"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oggyb/codev-api/internal/app"
	"github.com/oggyb/codev-api/internal/server"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "codev.v1.EngagementService"

// Registrar ties the Engagement service into the gRPC server
type Registrar struct {
	appCtx *app.AppContext
}

// NewRegistrar creates a new Registrar for the Engagement service
func NewRegistrar(appCtx *app.AppContext) *Registrar {
	return &Registrar{appCtx: appCtx}
}

// Register attaches the Engagement service implementation to the gRPC server
func (r *Registrar) Register(s *grpc.Server) {
	svc := NewEngagementService(r.appCtx)
	s.RegisterService(server.NewServiceDesc(ServiceName,
		server.Method{Name: "AddLike", Handle: svc.handleAddLike},
		server.Method{Name: "RemoveLike", Handle: svc.handleRemoveLike},
		server.Method{Name: "CountLikes", Handle: svc.handleCountLikes},
		server.Method{Name: "ListSolutionsForChallenge", Handle: svc.handleList},
	), svc)
}

type likeRequest struct {
	SolutionID uuid.UUID `json:"solution_id"`
}

type listRequest struct {
	ChallengeID uuid.UUID `json:"challenge_id"`
	Page        int       `json:"page"`
	Size        int       `json:"size"`
	Order       string    `json:"order"`
}

func (s *Service) handleAddLike(ctx context.Context, req *structpb.Struct) (any, error) {
	actor, err := server.RequireActor(ctx)
	if err != nil {
		return nil, err
	}
	var in likeRequest
	if err := server.Decode(req, &in); err != nil {
		return nil, err
	}
	return s.AddLike(ctx, in.SolutionID, actor.ID)
}

func (s *Service) handleRemoveLike(ctx context.Context, req *structpb.Struct) (any, error) {
	actor, err := server.RequireActor(ctx)
	if err != nil {
		return nil, err
	}
	var in likeRequest
	if err := server.Decode(req, &in); err != nil {
		return nil, err
	}
	return s.RemoveLike(ctx, in.SolutionID, actor.ID)
}

func (s *Service) handleCountLikes(ctx context.Context, req *structpb.Struct) (any, error) {
	var in likeRequest
	if err := server.Decode(req, &in); err != nil {
		return nil, err
	}
	n, err := s.CountLikes(ctx, in.SolutionID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"likes": n}, nil
}

// Anonymous viewers see liked=false everywhere.
func (s *Service) handleList(ctx context.Context, req *structpb.Struct) (any, error) {
	in := listRequest{Size: 10}
	if err := server.Decode(req, &in); err != nil {
		return nil, err
	}
	var viewer uuid.UUID
	if actor, ok := server.ActorFrom(ctx); ok {
		viewer = actor.ID
	}
	list, err := s.ListSolutionsForChallenge(ctx, ListQuery{
		ChallengeID: in.ChallengeID,
		ViewerID:    viewer,
		Page:        in.Page,
		Size:        in.Size,
		Order:       in.Order,
	})
	if err != nil {
		return nil, err
	}
	return server.Items(list), nil
}
