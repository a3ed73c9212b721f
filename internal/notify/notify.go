// Package notify carries event changes to the configured backends.
package notify

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"event-in/internal/models"
)

type ChangeType string

const (
	EventCreated ChangeType = "event.created"
	EventUpdated ChangeType = "event.updated"
	EventDeleted ChangeType = "event.deleted"
)

// ChangeTypes lists every type a Change can carry.
var ChangeTypes = []ChangeType{EventCreated, EventUpdated, EventDeleted}

// Change describes one successful mutation. Event is nil for deletes.
type Change struct {
	ID        string        `json:"id"`
	Type      ChangeType    `json:"type"`
	EventID   int64         `json:"event_id"`
	Event     *models.Event `json:"event,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

func NewChange(t ChangeType, eventID int64, ev *models.Event) Change {
	return Change{
		ID:        uuid.NewString(),
		Type:      t,
		EventID:   eventID,
		Event:     ev,
		Timestamp: time.Now().UTC(),
	}
}

type Notifier interface {
	Notify(ctx context.Context, change Change) error
}

// Nop drops every change.
type Nop struct{}

func (Nop) Notify(context.Context, Change) error { return nil }

// Multi fans a change out to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, change Change) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, change); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Func adapts a plain function to a Notifier.
type Func func(ctx context.Context, change Change) error

func (f Func) Notify(ctx context.Context, change Change) error { return f(ctx, change) }
