package server_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oggyb/codev-api/internal/app"
	"github.com/oggyb/codev-api/internal/config"
	"github.com/oggyb/codev-api/internal/db"
	"github.com/oggyb/codev-api/internal/db/dbtest"
	"github.com/oggyb/codev-api/internal/logger"
	"github.com/oggyb/codev-api/internal/server"
	"github.com/oggyb/codev-api/internal/service/category"
)

const secret = "test-secret"

type harness struct {
	conn      *grpc.ClientConn
	challenge *db.Challenge
}

// startServer serves the category service over an in-memory listener.
func startServer(t *testing.T) harness {
	t.Helper()
	gdb := dbtest.New(t)
	author := dbtest.User(t, gdb, "author")
	challenge := dbtest.Challenge(t, gdb, author.ID, "Todo app")

	cfg := &config.Config{}
	cfg.Auth.JWTSecret = secret
	cfg.Roles.User = "USER"
	cfg.Roles.Admin = "ADMIN"
	appCtx := app.New(cfg, gdb, nil, nil, logger.Nop())

	lis := bufconn.Listen(1 << 20)
	srv := server.NewGRPCServer(cfg, logger.Nop(), category.NewRegistrar(appCtx))
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return harness{conn: conn, challenge: challenge}
}

func (h harness) call(t *testing.T, ctx context.Context, method string, in map[string]any) (*structpb.Struct, error) {
	t.Helper()
	req, err := structpb.NewStruct(in)
	require.NoError(t, err)
	out := new(structpb.Struct)
	err = h.conn.Invoke(ctx, "/"+category.ServiceName+"/"+method, req, out)
	return out, err
}

func withToken(t *testing.T, roles ...string) context.Context {
	t.Helper()
	token, err := server.IssueToken(secret, uuid.New(), roles, time.Minute)
	require.NoError(t, err)
	return metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer "+token)
}

func TestAdminMethodRequiresAdminRole(t *testing.T) {
	h := startServer(t)
	in := map[string]any{"name": "Frontend"}

	_, err := h.call(t, context.Background(), "CreateCategory", in)
	assert.Equal(t, codes.PermissionDenied, status.Code(err))

	_, err = h.call(t, withToken(t, "USER"), "CreateCategory", in)
	assert.Equal(t, codes.PermissionDenied, status.Code(err))

	out, err := h.call(t, withToken(t, "USER", "ADMIN"), "CreateCategory", in)
	require.NoError(t, err)
	assert.Equal(t, "Frontend", out.Fields["name"].GetStringValue())
}

func TestInvalidTokenIsUnauthenticated(t *testing.T) {
	h := startServer(t)
	ctx := metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer garbage")

	_, err := h.call(t, ctx, "ListCategories", map[string]any{})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	other, err := server.IssueToken("another-secret", uuid.New(), nil, time.Minute)
	require.NoError(t, err)
	ctx = metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer "+other)
	_, err = h.call(t, ctx, "ListCategories", map[string]any{})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestAssignCategoryOverGRPC(t *testing.T) {
	h := startServer(t)
	admin := withToken(t, "ADMIN")

	created, err := h.call(t, admin, "CreateCategory", map[string]any{"name": "Backend"})
	require.NoError(t, err)
	categoryID := created.Fields["id"].GetStringValue()

	in := map[string]any{"challenge_id": h.challenge.ID.String(), "category_id": categoryID}
	out, err := h.call(t, withToken(t, "USER"), "AssignCategory", in)
	require.NoError(t, err)
	assert.Equal(t, categoryID, out.Fields["category"].GetStructValue().Fields["id"].GetStringValue())

	_, err = h.call(t, withToken(t, "USER"), "AssignCategory", in)
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))

	list, err := h.call(t, context.Background(), "ListCategories", map[string]any{})
	require.NoError(t, err)
	assert.Len(t, list.Fields["items"].GetListValue().GetValues(), 1)
}

func TestMalformedRequestIsInvalidArgument(t *testing.T) {
	h := startServer(t)
	_, err := h.call(t, withToken(t, "USER"), "AssignCategory", map[string]any{"challenge_id": "not-a-uuid"})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}
