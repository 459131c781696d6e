// internal/errors/mapper.go
package errors

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"gorm.io/gorm"
)

// Map converts typed and repo/infra errors into gRPC-friendly status errors.
// Keeps the transport layer clean by centralizing error mapping.
func Map(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "request timed out")

	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "request was canceled")
	}

	var typed *Error
	if errors.As(err, &typed) {
		return status.Error(codeFor(typed.Kind), typed.Error())
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return status.Error(codes.NotFound, "record not found")

	case IsDuplicate(err):
		return status.Error(codes.AlreadyExists, "record already exists")

	default:
		// fallback → bubble up error message for debugging
		return status.Error(codes.Internal, err.Error())
	}
}

func codeFor(k Kind) codes.Code {
	switch k {
	case KindNotFound:
		return codes.NotFound
	case KindConflict:
		return codes.FailedPrecondition
	case KindInvalidArgument:
		return codes.InvalidArgument
	case KindUnauthorized:
		return codes.PermissionDenied
	case KindAborted:
		return codes.Aborted
	default:
		return codes.Internal
	}
}
