package technology

import (
	"context"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oggyb/codev-api/internal/app"
	"github.com/oggyb/codev-api/internal/server"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "codev.v1.TechnologyService"

// Registrar ties the Technology service into the gRPC server
type Registrar struct {
	appCtx *app.AppContext
}

// NewRegistrar creates a new Registrar for the Technology service
func NewRegistrar(appCtx *app.AppContext) *Registrar {
	return &Registrar{appCtx: appCtx}
}

// Register attaches the Technology service implementation to the gRPC server
func (r *Registrar) Register(s *grpc.Server) {
	svc := NewTechnologyService(r.appCtx)
	s.RegisterService(server.NewServiceDesc(ServiceName,
		server.Method{Name: "CreateTechnology", Admin: true, Handle: svc.handleCreate},
		server.Method{Name: "UpdateTechnology", Admin: true, Handle: svc.handleUpdate},
		server.Method{Name: "DeleteTechnology", Admin: true, Handle: svc.handleDelete},
		server.Method{Name: "ListTechnologies", Handle: svc.handleList},
	), svc)
}

type technologyRequest struct {
	ID                uuid.UUID `json:"id"`
	Name              *string   `json:"name"`
	Description       *string   `json:"description"`
	DocumentationLink *string   `json:"documentation_link"`
	Color             *string   `json:"color"`
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (s *Service) handleCreate(ctx context.Context, req *structpb.Struct) (any, error) {
	var in technologyRequest
	if err := server.Decode(req, &in); err != nil {
		return nil, err
	}
	return s.CreateTechnology(ctx, Form{
		Name:              deref(in.Name),
		Description:       deref(in.Description),
		DocumentationLink: deref(in.DocumentationLink),
		Color:             deref(in.Color),
	})
}

func (s *Service) handleUpdate(ctx context.Context, req *structpb.Struct) (any, error) {
	var in technologyRequest
	if err := server.Decode(req, &in); err != nil {
		return nil, err
	}
	return s.UpdateTechnology(ctx, in.ID, Patch{
		Name:              in.Name,
		Description:       in.Description,
		DocumentationLink: in.DocumentationLink,
		Color:             in.Color,
	})
}

func (s *Service) handleDelete(ctx context.Context, req *structpb.Struct) (any, error) {
	var in technologyRequest
	if err := server.Decode(req, &in); err != nil {
		return nil, err
	}
	if err := s.DeleteTechnology(ctx, in.ID); err != nil {
		return nil, err
	}
	return map[string]any{"deleted": true}, nil
}

func (s *Service) handleList(ctx context.Context, _ *structpb.Struct) (any, error) {
	list, err := s.ListTechnologies(ctx)
	if err != nil {
		return nil, err
	}
	return server.Items(list), nil
}
