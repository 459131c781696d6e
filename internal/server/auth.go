package server

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	svcErr "github.com/oggyb/codev-api/internal/errors"
)

// Actor is the authenticated caller of a request.
type Actor struct {
	ID    uuid.UUID
	Roles []string
	Admin bool
}

type actorKey struct{}

// Claims is the bearer token payload: sub is the user id.
type Claims struct {
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

func ActorFrom(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(actorKey{}).(Actor)
	return a, ok
}

// RequireActor fails with Unauthorized on anonymous requests.
func RequireActor(ctx context.Context) (Actor, error) {
	a, ok := ActorFrom(ctx)
	if !ok {
		return Actor{}, svcErr.Unauthorized("authentication required")
	}
	return a, nil
}

// RequireAdmin fails with Unauthorized unless the actor holds the admin role.
func RequireAdmin(ctx context.Context) (Actor, error) {
	a, err := RequireActor(ctx)
	if err != nil {
		return Actor{}, err
	}
	if !a.Admin {
		return Actor{}, svcErr.Unauthorized("admin role required")
	}
	return a, nil
}

// IssueToken signs an HS256 token for userID carrying roles.
func IssueToken(secret string, userID uuid.UUID, roles []string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		Roles: roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseToken validates a bearer token and resolves its actor.
func ParseToken(secret, adminRole, raw string) (Actor, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return Actor{}, err
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return Actor{}, err
	}
	return Actor{
		ID:    id,
		Roles: claims.Roles,
		Admin: slices.Contains(claims.Roles, adminRole),
	}, nil
}

// AuthInterceptor resolves the actor from an "authorization: Bearer <jwt>"
// header. Requests without the header pass through anonymous; a present but
// invalid token is rejected with Unauthenticated.
func AuthInterceptor(secret, adminRole string, log *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		md, _ := metadata.FromIncomingContext(ctx)
		values := md.Get("authorization")
		if len(values) == 0 {
			return handler(ctx, req)
		}

		raw, ok := strings.CutPrefix(values[0], "Bearer ")
		if !ok {
			return nil, status.Error(codes.Unauthenticated, "authorization must be a bearer token")
		}
		actor, err := ParseToken(secret, adminRole, strings.TrimSpace(raw))
		if err != nil {
			log.Debug("rejected bearer token", "method", info.FullMethod, "err", err)
			return nil, status.Error(codes.Unauthenticated, "invalid token")
		}
		return handler(WithActor(ctx, actor), req)
	}
}
