package server

import (
	"context"
	"encoding/json"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	svcErr "github.com/oggyb/codev-api/internal/errors"
)

// Registrar is a common interface for all gRPC service registrars
type Registrar interface {
	Register(s *grpc.Server)
}

// Handler serves one unary method. The request is the decoded
// google.protobuf.Struct; the returned value is encoded back into one.
type Handler func(ctx context.Context, req *structpb.Struct) (any, error)

// Method is one unary RPC of a service.
type Method struct {
	Name string
	// Admin restricts the method to actors holding the admin role.
	Admin  bool
	Handle Handler
}

// NewServiceDesc builds a descriptor for a service whose request and
// response messages are all google.protobuf.Struct. No generated code is
// involved, so any registered value can serve it.
func NewServiceDesc(name string, methods ...Method) *grpc.ServiceDesc {
	desc := &grpc.ServiceDesc{
		ServiceName: name,
		HandlerType: (*any)(nil),
		Streams:     []grpc.StreamDesc{},
		Metadata:    name,
	}
	for _, m := range methods {
		desc.Methods = append(desc.Methods, grpc.MethodDesc{
			MethodName: m.Name,
			Handler:    unaryHandler("/"+name+"/"+m.Name, m),
		})
	}
	return desc
}

func unaryHandler(fullMethod string, m Method) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}

		call := func(ctx context.Context, req any) (any, error) {
			if m.Admin {
				if _, err := RequireAdmin(ctx); err != nil {
					return nil, svcErr.Map(err)
				}
			}
			out, err := m.Handle(ctx, req.(*structpb.Struct))
			if err != nil {
				return nil, svcErr.Map(err)
			}
			return Encode(out)
		}

		if interceptor == nil {
			return call(ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		return interceptor(ctx, in, info, call)
	}
}

// Decode copies the request fields into dst through their JSON form.
func Decode(req *structpb.Struct, dst any) error {
	b, err := protojson.Marshal(req)
	if err != nil {
		return svcErr.InvalidArgument("malformed request: %v", err)
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return svcErr.InvalidArgument("malformed request: %v", err)
	}
	return nil
}

// Encode turns v into a Struct through its JSON form. Values that do not
// encode to a JSON object are wrapped under "result".
func Encode(v any) (*structpb.Struct, error) {
	if v == nil {
		return &structpb.Struct{}, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, svcErr.Map(err)
	}

	var obj map[string]any
	if err := json.Unmarshal(b, &obj); err != nil || obj == nil {
		var raw any
		if err := json.Unmarshal(b, &raw); err != nil {
			return nil, svcErr.Map(err)
		}
		obj = map[string]any{"result": raw}
	}

	out, err := structpb.NewStruct(obj)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return out, nil
}

// Items wraps a list result.
func Items[T any](items []T) map[string]any {
	if items == nil {
		items = []T{}
	}
	return map[string]any{"items": items}
}
