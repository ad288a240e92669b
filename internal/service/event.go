package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/azha0089/HealthyLife/internal/domain"
	"github.com/azha0089/HealthyLife/internal/event"
	"github.com/azha0089/HealthyLife/internal/notify"
	"github.com/azha0089/HealthyLife/internal/repository"
	apperrors "github.com/azha0089/HealthyLife/pkg/errors"
)

// Actor identifies the authenticated caller of an operation.
type Actor struct {
	UserID string
	Role   string
}

// IsAdmin reports whether the actor holds the admin role.
func (a Actor) IsAdmin() bool {
	return a.Role == domain.RoleAdmin
}

// EventInput holds the descriptive fields of a community event.
type EventInput struct {
	Name        string
	Time        string
	Type        string
	Suburb      string
	Address     string
	Lat         float64
	Lng         float64
	Description string
}

func (in *EventInput) validate() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Suburb = strings.TrimSpace(in.Suburb)
	if in.Name == "" || strings.TrimSpace(in.Time) == "" || in.Suburb == "" {
		return apperrors.InvalidInput("name, time and suburb are required")
	}
	if !domain.IsValidEventType(in.Type) {
		return apperrors.InvalidInput(fmt.Sprintf("event type must be one of %s", strings.Join(domain.EventTypes, ", ")))
	}
	if in.Lat < -90 || in.Lat > 90 || in.Lng < -180 || in.Lng > 180 {
		return apperrors.InvalidInput("coordinates out of range")
	}
	return nil
}

func (in EventInput) apply(e *domain.Event) {
	e.Name = in.Name
	e.Time = in.Time
	e.Type = in.Type
	e.Suburb = in.Suburb
	e.Address = in.Address
	e.Lat = in.Lat
	e.Lng = in.Lng
	e.Description = in.Description
}

// EventService implements community events, moderation and bookings.
type EventService struct {
	events   repository.EventRepository
	users    repository.UserRepository
	mailer   notify.Mailer
	producer *event.Producer
	logger   *slog.Logger
	newID    func() string
	now      func() time.Time
}

// NewEventService creates an event service. mailer may be nil.
func NewEventService(
	events repository.EventRepository,
	users repository.UserRepository,
	mailer notify.Mailer,
	producer *event.Producer,
	logger *slog.Logger,
) *EventService {
	return &EventService{
		events:   events,
		users:    users,
		mailer:   mailer,
		producer: producer,
		logger:   logger,
		newID:    uuid.NewString,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// ListApproved returns approved events, optionally filtered by suburb and
// type.
func (s *EventService) ListApproved(ctx context.Context, suburb, eventType string) ([]domain.Event, error) {
	if eventType != "" && !domain.IsValidEventType(eventType) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("unknown event type %q", eventType))
	}
	return s.list(ctx, domain.EventFilter{Status: domain.EventApproved, Suburb: strings.TrimSpace(suburb), Type: eventType})
}

// ListPending returns submissions awaiting moderation.
func (s *EventService) ListPending(ctx context.Context) ([]domain.Event, error) {
	return s.list(ctx, domain.EventFilter{Status: domain.EventPending})
}

func (s *EventService) list(ctx context.Context, f domain.EventFilter) ([]domain.Event, error) {
	events, err := s.events.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	if events == nil {
		events = []domain.Event{}
	}
	return events, nil
}

// Get returns an event. Unapproved events are visible only to their
// organizer and to admins.
func (s *EventService) Get(ctx context.Context, actor Actor, id string) (*domain.Event, error) {
	e, err := s.events.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.Status == domain.EventApproved || actor.IsAdmin() {
		return e, nil
	}
	if e.OrganizerID != nil && *e.OrganizerID == actor.UserID {
		return e, nil
	}
	return nil, apperrors.NotFound("event", id)
}

// Submit records a user-submitted event pending moderation.
func (s *EventService) Submit(ctx context.Context, actor Actor, in EventInput) (*domain.Event, error) {
	if actor.UserID == "" {
		return nil, apperrors.Unauthorized("authentication required")
	}
	organizer := actor.UserID
	return s.create(ctx, in, domain.EventPending, &organizer, domain.CreatedByUser)
}

// CreateApproved records an admin-created event, approved immediately.
func (s *EventService) CreateApproved(ctx context.Context, actor Actor, in EventInput) (*domain.Event, error) {
	var organizer *string
	if actor.UserID != "" {
		organizer = &actor.UserID
	}
	return s.create(ctx, in, domain.EventApproved, organizer, domain.CreatedByAdmin)
}

func (s *EventService) create(ctx context.Context, in EventInput, status domain.EventStatus, organizer *string, createdBy string) (*domain.Event, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	now := s.now()
	e := &domain.Event{
		ID:          s.newID(),
		Status:      status,
		OrganizerID: organizer,
		CreatedBy:   createdBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	in.apply(e)

	if err := s.events.Create(ctx, e); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	s.publishStatus(ctx, e)

	s.logger.InfoContext(ctx, "event created",
		slog.String("event_id", e.ID),
		slog.String("status", string(e.Status)),
		slog.String("created_by", createdBy),
	)
	return e, nil
}

// Approve publishes a pending event.
func (s *EventService) Approve(ctx context.Context, id string) (*domain.Event, error) {
	return s.moderate(ctx, id, domain.EventApproved)
}

// Reject declines a pending event.
func (s *EventService) Reject(ctx context.Context, id string) (*domain.Event, error) {
	return s.moderate(ctx, id, domain.EventRejected)
}

func (s *EventService) moderate(ctx context.Context, id string, status domain.EventStatus) (*domain.Event, error) {
	e, err := s.events.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.Status == status {
		return e, nil
	}

	if err := s.events.UpdateStatus(ctx, id, status); err != nil {
		return nil, fmt.Errorf("update event status: %w", err)
	}
	e.Status = status
	e.UpdatedAt = s.now()
	s.publishStatus(ctx, e)

	s.logger.InfoContext(ctx, "event moderated",
		slog.String("event_id", id),
		slog.String("status", string(status)),
	)
	return e, nil
}

// Update rewrites an event's descriptive fields.
func (s *EventService) Update(ctx context.Context, id string, in EventInput) (*domain.Event, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	e, err := s.events.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	in.apply(e)
	e.UpdatedAt = s.now()

	if err := s.events.Update(ctx, e); err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}
	return e, nil
}

// Delete removes an event and its bookings.
func (s *EventService) Delete(ctx context.Context, id string) error {
	if err := s.events.Delete(ctx, id); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return err
		}
		return fmt.Errorf("delete event: %w", err)
	}
	s.logger.InfoContext(ctx, "event deleted", slog.String("event_id", id))
	return nil
}

// Book reserves a place for the user. Booking twice is a no-op that
// reports the existing booking.
func (s *EventService) Book(ctx context.Context, eventID, userID string) (*domain.Event, error) {
	if userID == "" {
		return nil, apperrors.Unauthorized("authentication required")
	}
	e, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if e.Status != domain.EventApproved {
		return nil, apperrors.InvalidInput("only approved events can be booked")
	}

	created, err := s.events.Book(ctx, eventID, userID)
	if err != nil {
		return nil, fmt.Errorf("book event: %w", err)
	}
	if !created {
		return e, nil
	}
	e.BookingsCount++

	if err := s.producer.PublishBooked(ctx, eventID, userID); err != nil {
		s.logger.WarnContext(ctx, "failed to publish event.booked event",
			slog.String("event_id", eventID),
			slog.String("error", err.Error()),
		)
	}
	s.sendConfirmation(ctx, e, userID)
	return e, nil
}

// CancelBooking releases the user's place at the event.
func (s *EventService) CancelBooking(ctx context.Context, eventID, userID string) error {
	if userID == "" {
		return apperrors.Unauthorized("authentication required")
	}
	if err := s.events.CancelBooking(ctx, eventID, userID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return err
		}
		return fmt.Errorf("cancel booking: %w", err)
	}

	if err := s.producer.PublishBookingCancelled(ctx, eventID, userID); err != nil {
		s.logger.WarnContext(ctx, "failed to publish event.booking_cancelled event",
			slog.String("event_id", eventID),
			slog.String("error", err.Error()),
		)
	}
	return nil
}

// ListUserBookings returns the user's bookings, newest first.
func (s *EventService) ListUserBookings(ctx context.Context, userID string) ([]domain.Booking, error) {
	bookings, err := s.events.ListBookingsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	if bookings == nil {
		bookings = []domain.Booking{}
	}
	return bookings, nil
}

func (s *EventService) publishStatus(ctx context.Context, e *domain.Event) {
	if err := s.producer.PublishEventStatus(ctx, e); err != nil {
		s.logger.WarnContext(ctx, "failed to publish event status",
			slog.String("event_id", e.ID),
			slog.String("error", err.Error()),
		)
	}
}

// sendConfirmation mails the booking confirmation. Failures never fail the
// booking.
func (s *EventService) sendConfirmation(ctx context.Context, e *domain.Event, userID string) {
	if s.mailer == nil {
		return
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		s.logger.WarnContext(ctx, "booking confirmation skipped",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return
	}

	msg, err := notify.BookingConfirmation(user.Email, user.DisplayName, e)
	if err == nil {
		err = s.mailer.Send(ctx, msg)
	}
	switch {
	case errors.Is(err, notify.ErrNotConfigured):
		s.logger.DebugContext(ctx, "mail webhook not configured, confirmation not sent")
	case err != nil:
		s.logger.WarnContext(ctx, "failed to send booking confirmation",
			slog.String("event_id", e.ID),
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}
}
