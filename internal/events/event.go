// Package events defines domain events published after a unit of work commits.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	ChallengeJoined   Type = "challenge.joined"
	ChallengeUnjoined Type = "challenge.unjoined"
	SolutionCreated   Type = "solution.created"
	SolutionDeleted   Type = "solution.deleted"
	SolutionLiked     Type = "solution.liked"
	SolutionUnliked   Type = "solution.unliked"
	CategoryDeleted   Type = "category.deleted"
)

// Event carries enough identity for consumers to react without querying
// the primary database. Unused ids stay uuid.Nil.
type Event struct {
	Type        Type      `json:"type"`
	ActorID     uuid.UUID `json:"actor_id"`
	ChallengeID uuid.UUID `json:"challenge_id"`
	SolutionID  uuid.UUID `json:"solution_id"`
	CategoryID  uuid.UUID `json:"category_id"`
	// Count is event specific: likes removed on solution.deleted,
	// challenges detached on category.deleted.
	Count      int64     `json:"count,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// Recorder keeps published events in memory. Used by tests.
type Recorder struct {
	mu     sync.Mutex
	events []Event
	Err    error
}

func (r *Recorder) Publish(_ context.Context, ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.events = append(r.events, ev)
	return nil
}

// Events returns a copy of everything published so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Types returns the published event types in order.
func (r *Recorder) Types() []Type {
	evs := r.Events()
	out := make([]Type, 0, len(evs))
	for _, ev := range evs {
		out = append(out, ev.Type)
	}
	return out
}
