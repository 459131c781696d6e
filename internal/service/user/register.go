package user

import (
	"context"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oggyb/codev-api/internal/app"
	svcErr "github.com/oggyb/codev-api/internal/errors"
	"github.com/oggyb/codev-api/internal/server"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "codev.v1.UserService"

// Registrar ties the User service into the gRPC server
type Registrar struct {
	appCtx *app.AppContext
}

// NewRegistrar creates a new Registrar for the User service
func NewRegistrar(appCtx *app.AppContext) *Registrar {
	return &Registrar{appCtx: appCtx}
}

// Register attaches the User service implementation to the gRPC server
func (r *Registrar) Register(s *grpc.Server) {
	svc := NewUserService(r.appCtx)
	s.RegisterService(server.NewServiceDesc(ServiceName,
		server.Method{Name: "CreateUser", Handle: svc.handleCreate},
		server.Method{Name: "Login", Handle: svc.handleLogin},
		server.Method{Name: "GetUser", Handle: svc.handleGet},
		server.Method{Name: "UpdateUser", Handle: svc.handleUpdate},
		server.Method{Name: "DeactivateUser", Handle: svc.handleDeactivate},
		server.Method{Name: "GrantAdmin", Admin: true, Handle: svc.handleGrantAdmin},
		server.Method{Name: "ListUsers", Admin: true, Handle: svc.handleList},
	), svc)
}

type userRequest struct {
	ID            uuid.UUID `json:"id"`
	Name          *string   `json:"name"`
	Email         *string   `json:"email"`
	Password      *string   `json:"password"`
	GithubURL     *string   `json:"github_url"`
	AdditionalURL *string   `json:"additional_url"`
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (s *Service) handleCreate(ctx context.Context, req *structpb.Struct) (any, error) {
	var in userRequest
	if err := server.Decode(req, &in); err != nil {
		return nil, err
	}
	return s.CreateUser(ctx, Form{
		Name:          deref(in.Name),
		Email:         deref(in.Email),
		Password:      deref(in.Password),
		GithubURL:     deref(in.GithubURL),
		AdditionalURL: deref(in.AdditionalURL),
	})
}

func (s *Service) handleLogin(ctx context.Context, req *structpb.Struct) (any, error) {
	var in userRequest
	if err := server.Decode(req, &in); err != nil {
		return nil, err
	}
	u, err := s.Authenticate(ctx, deref(in.Email), deref(in.Password))
	if err != nil {
		return nil, err
	}
	cfg := s.appCtx.Config.Auth
	token, err := server.IssueToken(cfg.JWTSecret, u.ID, u.Roles, cfg.TokenTTL)
	if err != nil {
		return nil, svcErr.Storage(err)
	}
	return map[string]any{"token": token, "user": u}, nil
}

func (s *Service) handleGet(ctx context.Context, req *structpb.Struct) (any, error) {
	var in userRequest
	if err := server.Decode(req, &in); err != nil {
		return nil, err
	}
	return s.GetUser(ctx, in.ID)
}

func (s *Service) handleUpdate(ctx context.Context, req *structpb.Struct) (any, error) {
	var in userRequest
	if err := server.Decode(req, &in); err != nil {
		return nil, err
	}
	if err := selfOrAdmin(ctx, in.ID); err != nil {
		return nil, err
	}
	return s.UpdateUser(ctx, in.ID, Patch{
		Name:          in.Name,
		Email:         in.Email,
		Password:      in.Password,
		GithubURL:     in.GithubURL,
		AdditionalURL: in.AdditionalURL,
	})
}

func (s *Service) handleDeactivate(ctx context.Context, req *structpb.Struct) (any, error) {
	var in userRequest
	if err := server.Decode(req, &in); err != nil {
		return nil, err
	}
	if err := selfOrAdmin(ctx, in.ID); err != nil {
		return nil, err
	}
	if err := s.DeactivateUser(ctx, in.ID); err != nil {
		return nil, err
	}
	return map[string]any{"active": false}, nil
}

func (s *Service) handleGrantAdmin(ctx context.Context, req *structpb.Struct) (any, error) {
	var in userRequest
	if err := server.Decode(req, &in); err != nil {
		return nil, err
	}
	return s.GrantAdmin(ctx, in.ID)
}

type listRequest struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Active *bool  `json:"active"`
	Page   int    `json:"page"`
	Size   int    `json:"size"`
}

func (s *Service) handleList(ctx context.Context, req *structpb.Struct) (any, error) {
	in := listRequest{Size: 10}
	if err := server.Decode(req, &in); err != nil {
		return nil, err
	}
	list, err := s.ListUsers(ctx, Filter{
		Name:   in.Name,
		Email:  in.Email,
		Active: in.Active,
		Page:   in.Page,
		Size:   in.Size,
	})
	if err != nil {
		return nil, err
	}
	return server.Items(list), nil
}

func selfOrAdmin(ctx context.Context, id uuid.UUID) error {
	actor, err := server.RequireActor(ctx)
	if err != nil {
		return err
	}
	if actor.ID != id && !actor.Admin {
		return svcErr.Unauthorized("not allowed to change user %s", id)
	}
	return nil
}
