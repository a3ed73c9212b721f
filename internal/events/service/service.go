package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"event-in/internal/errdef"
	"event-in/internal/logger"
	"event-in/internal/models"
	"event-in/internal/notify"
)

// ErrEventNotFound is wrapped by every not-found error the service returns.
var ErrEventNotFound = errors.New("event not found")

type EventDBLayer interface {
	CreateEvent(ctx context.Context, ev *models.Event) error
	GetEventByID(ctx context.Context, id int64) (*models.Event, error)
	ListEvents(ctx context.Context) ([]models.Event, error)
	UpdateEvent(ctx context.Context, ev *models.Event) (bool, error)
	DeleteEvent(ctx context.Context, id int64) (bool, error)
}

// DefaultNotifyTimeout bounds how long a committed request waits on notifiers.
const DefaultNotifyTimeout = 3 * time.Second

// Storage errors are returned unwrapped; the API layer adds the operation
// prefix to the message it sends back.
type EventService struct {
	DB            EventDBLayer
	Notifier      notify.Notifier
	Logger        *logger.Logger
	Now           func() time.Time
	NotifyTimeout time.Duration
}

func NewEventService(db EventDBLayer, notifier notify.Notifier, log *logger.Logger) *EventService {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &EventService{
		DB:       db,
		Notifier: notifier,
		Logger:   log,
		Now:           func() time.Time { return time.Now().UTC() },
		NotifyTimeout: DefaultNotifyTimeout,
	}
}

func (s *EventService) Create(ctx context.Context, in models.EventInput) (*models.Event, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	ev := &models.Event{CreatedAt: s.Now()}
	in.Apply(ev)

	if err := s.DB.CreateEvent(ctx, ev); err != nil {
		s.Logger.Error("EVENT", fmt.Sprintf("Failed to create event %q: %v", ev.Name, err))
		return nil, err
	}

	s.Logger.LogEvent("CREATE", ev.ID, ev.Name)
	s.notify(ctx, notify.NewChange(notify.EventCreated, ev.ID, ev))
	return ev, nil
}

func (s *EventService) Get(ctx context.Context, id int64) (*models.Event, error) {
	ev, err := s.DB.GetEventByID(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errdef.NewNotFound("%w: %d", ErrEventNotFound, id)
	}
	if err != nil {
		s.Logger.Error("EVENT", fmt.Sprintf("Failed to get event %d: %v", id, err))
		return nil, err
	}
	return ev, nil
}

func (s *EventService) List(ctx context.Context) ([]models.Event, error) {
	events, err := s.DB.ListEvents(ctx)
	if err != nil {
		s.Logger.Error("EVENT", fmt.Sprintf("Failed to list events: %v", err))
		return nil, err
	}
	return events, nil
}

// Update replaces every mutable field of event id. The returned event keeps
// a zero CreatedAt because the row is not read back.
func (s *EventService) Update(ctx context.Context, id int64, in models.EventInput) (*models.Event, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	now := s.Now()
	ev := &models.Event{ID: id, UpdatedAt: &now}
	in.Apply(ev)

	matched, err := s.DB.UpdateEvent(ctx, ev)
	if err != nil {
		s.Logger.Error("EVENT", fmt.Sprintf("Failed to update event %d: %v", id, err))
		return nil, err
	}
	if !matched {
		return nil, errdef.NewNotFound("%w: %d", ErrEventNotFound, id)
	}

	s.Logger.LogEvent("UPDATE", id, ev.Name)
	s.notify(ctx, notify.NewChange(notify.EventUpdated, id, ev))
	return ev, nil
}

func (s *EventService) Delete(ctx context.Context, id int64) error {
	deleted, err := s.DB.DeleteEvent(ctx, id)
	if err != nil {
		s.Logger.Error("EVENT", fmt.Sprintf("Failed to delete event %d: %v", id, err))
		return err
	}
	if !deleted {
		return errdef.NewNotFound("%w: %d", ErrEventNotFound, id)
	}

	s.Logger.LogEvent("DELETE", id, "deleted")
	s.notify(ctx, notify.NewChange(notify.EventDeleted, id, nil))
	return nil
}

// notify never fails the request; the row is already committed. Delivery is
// detached from request cancellation but bounded by NotifyTimeout.
func (s *EventService) notify(ctx context.Context, change notify.Change) {
	ctx = context.WithoutCancel(ctx)
	if s.NotifyTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.NotifyTimeout)
		defer cancel()
	}
	if err := s.Notifier.Notify(ctx, change); err != nil {
		s.Logger.Warn("NOTIFY", fmt.Sprintf("Change %s for event %d not delivered: %v", change.Type, change.EventID, err))
	}
}
