// Package notify publishes an event each time a visit is counted and helps
// subscribers process every event once.
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Event struct {
	ID    string    `json:"id"`
	Count int64     `json:"count"`
	At    time.Time `json:"at"`
}

func NewEvent(count int64) Event {
	return Event{
		ID:    uuid.New().String(),
		Count: count,
		At:    time.Now().UTC(),
	}
}

// Notifier must not block the caller on delivery and never fails it.
type Notifier interface {
	Notify(ctx context.Context, ev Event)
}

var _ Notifier = Nop{}

type Nop struct{}

func (Nop) Notify(ctx context.Context, ev Event) {}

// Func adapts a plain function to Notifier.
type Func func(ctx context.Context, ev Event)

func (f Func) Notify(ctx context.Context, ev Event) {
	f(ctx, ev)
}
