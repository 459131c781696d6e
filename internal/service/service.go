// Package service holds helpers shared by the per-domain service packages.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/oggyb/codev-api/internal/app"
	"github.com/oggyb/codev-api/internal/db"
	svcErr "github.com/oggyb/codev-api/internal/errors"
	"github.com/oggyb/codev-api/internal/events"
	"github.com/oggyb/codev-api/internal/metrics"
	"github.com/oggyb/codev-api/internal/repository"
)

// Lookup turns a failed single-row read into NotFound, anything else into
// StorageFailure.
func Lookup(err error, format string, args ...any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return svcErr.NotFound(format, args...)
	}
	return svcErr.Storage(err)
}

// ActiveUser loads a user that may act: NotFound when missing,
// ErrUserDeactivated when deactivated.
func ActiveUser(ctx context.Context, store *repository.Store, id uuid.UUID) (*db.User, error) {
	u, err := store.Users.FindByID(ctx, id)
	if err != nil {
		return nil, Lookup(err, "user %s not found", id)
	}
	if !u.Active {
		return nil, svcErr.Rule(svcErr.ErrUserDeactivated, 0, fmt.Errorf("user %s", id))
	}
	return u, nil
}

// Emit publishes ev after a commit. Failures are logged and swallowed:
// the unit of work has already committed.
func Emit(ctx context.Context, appCtx *app.AppContext, ev events.Event) {
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	if err := appCtx.Publisher.Publish(ctx, ev); err != nil {
		metrics.EventsPublishedTotal.WithLabelValues(string(ev.Type), "error").Inc()
		appCtx.Logger.Warn("event publish failed", "type", ev.Type, "err", err)
		return
	}
	metrics.EventsPublishedTotal.WithLabelValues(string(ev.Type), "ok").Inc()
}
