// Package errors defines the typed failures returned by every service.
// Callers match them with errors.Is against the sentinels below or inspect
// the Kind with KindOf.
package errors

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindConflict
	KindInvalidArgument
	KindStorageFailure
	KindUnauthorized
	// KindAborted is a transient failure; the same call may succeed on retry.
	KindAborted
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "NotFound"
	case KindConflict:
		return "Conflict"
	case KindInvalidArgument:
		return "InvalidArgument"
	case KindStorageFailure:
		return "StorageFailure"
	case KindUnauthorized:
		return "Unauthorized"
	case KindAborted:
		return "Aborted"
	default:
		return "Unknown"
	}
}

// Error is a typed failure. Code names the business rule that rejected the
// operation and is empty for plain kind failures.
type Error struct {
	Kind Kind
	Code string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Code != "" {
		msg = e.Code + ": " + msg
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches by Code when the target has one, by Kind otherwise.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Code != "" {
		return e.Code == t.Code
	}
	return e.Kind == t.Kind
}

// Kind-only sentinels.
var (
	ErrNotFound        = &Error{Kind: KindNotFound}
	ErrConflict        = &Error{Kind: KindConflict}
	ErrInvalidArgument = &Error{Kind: KindInvalidArgument}
	ErrStorage         = &Error{Kind: KindStorageFailure}
	ErrUnauthorized    = &Error{Kind: KindUnauthorized}
)

// Business-rule sentinels.
var (
	ErrCategoryAlreadyAssigned = &Error{Kind: KindConflict, Code: "CategoryAlreadyAssigned", Msg: "challenge already has a category"}
	ErrJoinNotAccepted         = &Error{Kind: KindConflict, Code: "JoinNotAccepted", Msg: "join not accepted"}
	ErrUnjoinNotAccepted       = &Error{Kind: KindConflict, Code: "UnjoinNotAccepted", Msg: "unjoin not accepted"}
	ErrLikeNotAccepted         = &Error{Kind: KindConflict, Code: "LikeNotAccepted", Msg: "like not accepted"}
	ErrSolutionNotDeleted      = &Error{Kind: KindStorageFailure, Code: "SolutionNotDeleted", Msg: "solution not deleted"}
	ErrUserDeactivated         = &Error{Kind: KindConflict, Code: "UserDeactivated", Msg: "user is deactivated"}
	ErrUserHasAdminRole        = &Error{Kind: KindConflict, Code: "UserHasAdminRole", Msg: "user already has the admin role"}
	ErrLikeToggleInProgress    = &Error{Kind: KindAborted, Code: "LikeToggleInProgress", Msg: "a toggle of this like is in progress"}
)

func NotFound(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...any) error {
	return &Error{Kind: KindConflict, Msg: fmt.Sprintf(format, args...)}
}

func InvalidArgument(format string, args ...any) error {
	return &Error{Kind: KindInvalidArgument, Msg: fmt.Sprintf(format, args...)}
}

func Unauthorized(format string, args ...any) error {
	return &Error{Kind: KindUnauthorized, Msg: fmt.Sprintf(format, args...)}
}

// Storage wraps a low-level persistence failure. Typed errors pass through.
func Storage(err error) error {
	if err == nil {
		return nil
	}
	var typed *Error
	if errors.As(err, &typed) {
		return err
	}
	return &Error{Kind: KindStorageFailure, Msg: "storage failure", Err: err}
}

// Rule builds a failure for a named rule, keeping the rule's Code while
// overriding its Kind and attaching a cause. A zero kind keeps the rule's.
func Rule(rule *Error, kind Kind, cause error) error {
	if kind == KindUnknown {
		kind = rule.Kind
	}
	return &Error{Kind: kind, Code: rule.Code, Msg: rule.Msg, Err: cause}
}

// KindOf reports the kind of err, classifying raw store errors on the way.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Kind
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return KindNotFound
	case IsDuplicate(err):
		return KindConflict
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return KindStorageFailure
	}
	return KindUnknown
}

// IsDuplicate reports whether err is a unique or primary key violation.
// It relies on gorm's TranslateError and falls back to the raw MySQL code.
func IsDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == 1062
}
