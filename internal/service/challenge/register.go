package challenge

import (
	"context"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oggyb/codev-api/internal/app"
	"github.com/oggyb/codev-api/internal/db"
	svcErr "github.com/oggyb/codev-api/internal/errors"
	"github.com/oggyb/codev-api/internal/server"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "codev.v1.ChallengeService"

// Registrar ties the Challenge service into the gRPC server
type Registrar struct {
	appCtx *app.AppContext
}

// NewRegistrar creates a new Registrar for the Challenge service
func NewRegistrar(appCtx *app.AppContext) *Registrar {
	return &Registrar{appCtx: appCtx}
}

// Register attaches the Challenge service implementation to the gRPC server
func (r *Registrar) Register(s *grpc.Server) {
	svc := NewChallengeService(r.appCtx)
	s.RegisterService(server.NewServiceDesc(ServiceName,
		server.Method{Name: "CreateChallenge", Handle: svc.handleCreate},
		server.Method{Name: "GetChallenge", Handle: svc.handleGet},
		server.Method{Name: "UpdateChallenge", Handle: svc.handleUpdate},
		server.Method{Name: "DeactivateChallenge", Handle: svc.handleDeactivate},
		server.Method{Name: "AddTechnology", Handle: svc.handleAddTechnology},
		server.Method{Name: "RemoveTechnology", Handle: svc.handleRemoveTechnology},
		server.Method{Name: "ListTechnologies", Handle: svc.handleListTechnologies},
		server.Method{Name: "ListChallenges", Handle: svc.handleList},
		server.Method{Name: "ListChallengesByCategory", Handle: svc.handleListByCategory},
	), svc)
}

type createRequest struct {
	Title         string             `json:"title"`
	Description   string             `json:"description"`
	ImageURL      string             `json:"image_url"`
	Status        db.ChallengeStatus `json:"status"`
	CategoryID    *uuid.UUID         `json:"category_id"`
	TechnologyIDs []uuid.UUID        `json:"technology_ids"`
}

type updateRequest struct {
	ID          uuid.UUID           `json:"id"`
	Title       *string             `json:"title"`
	Description *string             `json:"description"`
	ImageURL    *string             `json:"image_url"`
	Status      *db.ChallengeStatus `json:"status"`
}

type challengeRequest struct {
	ID           uuid.UUID `json:"id"`
	TechnologyID uuid.UUID `json:"technology_id"`
}

type listRequest struct {
	Page       int        `json:"page"`
	Size       int        `json:"size"`
	CategoryID *uuid.UUID `json:"category_id"`
	OrderBy    string     `json:"order_by"`
}

func (s *Service) handleCreate(ctx context.Context, req *structpb.Struct) (any, error) {
	actor, err := server.RequireActor(ctx)
	if err != nil {
		return nil, err
	}
	var in createRequest
	if err := server.Decode(req, &in); err != nil {
		return nil, err
	}
	return s.CreateChallenge(ctx, Form{
		Title:         in.Title,
		Description:   in.Description,
		ImageURL:      in.ImageURL,
		Status:        in.Status,
		AuthorID:      actor.ID,
		CategoryID:    in.CategoryID,
		TechnologyIDs: in.TechnologyIDs,
	})
}

func (s *Service) handleGet(ctx context.Context, req *structpb.Struct) (any, error) {
	var in challengeRequest
	if err := server.Decode(req, &in); err != nil {
		return nil, err
	}
	return s.GetChallenge(ctx, in.ID)
}

func (s *Service) handleUpdate(ctx context.Context, req *structpb.Struct) (any, error) {
	var in updateRequest
	if err := server.Decode(req, &in); err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, in.ID); err != nil {
		return nil, err
	}
	return s.UpdateChallenge(ctx, in.ID, Patch{
		Title:       in.Title,
		Description: in.Description,
		ImageURL:    in.ImageURL,
		Status:      in.Status,
	})
}

func (s *Service) handleDeactivate(ctx context.Context, req *structpb.Struct) (any, error) {
	var in challengeRequest
	if err := server.Decode(req, &in); err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, in.ID); err != nil {
		return nil, err
	}
	if err := s.DeactivateChallenge(ctx, in.ID); err != nil {
		return nil, err
	}
	return map[string]any{"active": false}, nil
}

func (s *Service) handleAddTechnology(ctx context.Context, req *structpb.Struct) (any, error) {
	var in challengeRequest
	if err := server.Decode(req, &in); err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, in.ID); err != nil {
		return nil, err
	}
	return s.AddTechnology(ctx, in.ID, in.TechnologyID)
}

func (s *Service) handleRemoveTechnology(ctx context.Context, req *structpb.Struct) (any, error) {
	var in challengeRequest
	if err := server.Decode(req, &in); err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, in.ID); err != nil {
		return nil, err
	}
	return s.RemoveTechnology(ctx, in.ID, in.TechnologyID)
}

func (s *Service) handleListTechnologies(ctx context.Context, req *structpb.Struct) (any, error) {
	var in challengeRequest
	if err := server.Decode(req, &in); err != nil {
		return nil, err
	}
	list, err := s.ListTechnologies(ctx, in.ID)
	if err != nil {
		return nil, err
	}
	return server.Items(list), nil
}

func (s *Service) handleList(ctx context.Context, req *structpb.Struct) (any, error) {
	in := listRequest{Size: 10}
	if err := server.Decode(req, &in); err != nil {
		return nil, err
	}
	list, err := s.ListChallenges(ctx, Query{
		Page:       in.Page,
		Size:       in.Size,
		CategoryID: in.CategoryID,
		OrderBy:    in.OrderBy,
	})
	if err != nil {
		return nil, err
	}
	return server.Items(list), nil
}

func (s *Service) handleListByCategory(ctx context.Context, req *structpb.Struct) (any, error) {
	in := listRequest{Size: 10}
	if err := server.Decode(req, &in); err != nil {
		return nil, err
	}
	if in.CategoryID == nil {
		return nil, svcErr.InvalidArgument("category_id is required")
	}
	list, err := s.ListChallengesByCategory(ctx, *in.CategoryID, in.Page, in.Size)
	if err != nil {
		return nil, err
	}
	return server.Items(list), nil
}

// authorize lets the challenge author and admins through.
func (s *Service) authorize(ctx context.Context, challengeID uuid.UUID) error {
	actor, err := server.RequireActor(ctx)
	if err != nil {
		return err
	}
	if actor.Admin {
		return nil
	}
	c, err := s.GetChallenge(ctx, challengeID)
	if err != nil {
		return err
	}
	if c.AuthorID != actor.ID {
		return svcErr.Unauthorized("only the author may change challenge %s", challengeID)
	}
	return nil
}
