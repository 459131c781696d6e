package category

import (
	"context"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oggyb/codev-api/internal/app"
	"github.com/oggyb/codev-api/internal/server"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "codev.v1.CategoryService"

// Registrar ties the Category service into the gRPC server
type Registrar struct {
	appCtx *app.AppContext
}

// NewRegistrar creates a new Registrar for the Category service
func NewRegistrar(appCtx *app.AppContext) *Registrar {
	return &Registrar{appCtx: appCtx}
}

// Register attaches the Category service implementation to the gRPC server
func (r *Registrar) Register(s *grpc.Server) {
	svc := NewCategoryService(r.appCtx)
	s.RegisterService(server.NewServiceDesc(ServiceName,
		server.Method{Name: "CreateCategory", Admin: true, Handle: svc.handleCreate},
		server.Method{Name: "RenameCategory", Admin: true, Handle: svc.handleRename},
		server.Method{Name: "ListCategories", Handle: svc.handleList},
		server.Method{Name: "AssignCategory", Handle: svc.handleAssign},
		server.Method{Name: "RemoveCategory", Handle: svc.handleRemove},
		server.Method{Name: "DeleteCategory", Admin: true, Handle: svc.handleDelete},
	), svc)
}

type categoryRequest struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type assignRequest struct {
	ChallengeID uuid.UUID `json:"challenge_id"`
	CategoryID  uuid.UUID `json:"category_id"`
}

func (s *Service) handleCreate(ctx context.Context, req *structpb.Struct) (any, error) {
	var in categoryRequest
	if err := server.Decode(req, &in); err != nil {
		return nil, err
	}
	return s.CreateCategory(ctx, in.Name)
}

func (s *Service) handleRename(ctx context.Context, req *structpb.Struct) (any, error) {
	var in categoryRequest
	if err := server.Decode(req, &in); err != nil {
		return nil, err
	}
	return s.RenameCategory(ctx, in.ID, in.Name)
}

func (s *Service) handleList(ctx context.Context, _ *structpb.Struct) (any, error) {
	list, err := s.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	return server.Items(list), nil
}

func (s *Service) handleAssign(ctx context.Context, req *structpb.Struct) (any, error) {
	if _, err := server.RequireActor(ctx); err != nil {
		return nil, err
	}
	var in assignRequest
	if err := server.Decode(req, &in); err != nil {
		return nil, err
	}
	return s.AssignCategory(ctx, in.ChallengeID, in.CategoryID)
}

func (s *Service) handleRemove(ctx context.Context, req *structpb.Struct) (any, error) {
	if _, err := server.RequireActor(ctx); err != nil {
		return nil, err
	}
	var in assignRequest
	if err := server.Decode(req, &in); err != nil {
		return nil, err
	}
	return s.RemoveCategory(ctx, in.ChallengeID)
}

func (s *Service) handleDelete(ctx context.Context, req *structpb.Struct) (any, error) {
	var in categoryRequest
	if err := server.Decode(req, &in); err != nil {
		return nil, err
	}
	if err := s.DeleteCategory(ctx, in.ID); err != nil {
		return nil, err
	}
	return map[string]any{"deleted": true}, nil
}
