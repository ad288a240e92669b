package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/azha0089/HealthyLife/internal/domain"
	"github.com/azha0089/HealthyLife/internal/event"
	"github.com/azha0089/HealthyLife/internal/notify"
	apperrors "github.com/azha0089/HealthyLife/pkg/errors"
)

type eventFixture struct {
	events *mockEventRepository
	users  *mockUserRepository
	mailer *mockMailer
	pub    *recordingPublisher
	svc    *EventService
}

func setupEventService(t *testing.T) *eventFixture {
	t.Helper()
	f := &eventFixture{
		events: new(mockEventRepository),
		users:  new(mockUserRepository),
		mailer: new(mockMailer),
		pub:    &recordingPublisher{},
	}
	f.svc = NewEventService(f.events, f.users, f.mailer, newProducer(f.pub), testLogger())
	f.svc.newID = func() string { return "ev-1" }
	f.svc.now = func() time.Time { return time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC) }
	return f
}

func validEventInput() EventInput {
	return EventInput{
		Name:   "Park Run",
		Time:   "Saturday 8am",
		Type:   domain.EventTypeSport,
		Suburb: "Carlton",
		Lat:    -37.8,
		Lng:    144.96,
	}
}

func approvedEvent() *domain.Event {
	return &domain.Event{ID: "ev-1", Name: "Park Run", Type: domain.EventTypeSport, Status: domain.EventApproved}
}

func TestEventSubmit_IsPending(t *testing.T) {
	f := setupEventService(t)
	f.events.On("Create", mock.Anything, mock.MatchedBy(func(e *domain.Event) bool {
		return e.Status == domain.EventPending && *e.OrganizerID == "u1" && e.CreatedBy == domain.CreatedByUser
	})).Return(nil).Once()

	e, err := f.svc.Submit(context.Background(), Actor{UserID: "u1", Role: domain.RoleUser}, validEventInput())
	require.NoError(t, err)
	assert.Equal(t, "ev-1", e.ID)
	assert.Equal(t, []string{event.TopicEventSubmitted}, f.pub.published())
}

func TestEventSubmit_Validation(t *testing.T) {
	f := setupEventService(t)
	actor := Actor{UserID: "u1"}

	in := validEventInput()
	in.Type = "Picnic"
	_, err := f.svc.Submit(context.Background(), actor, in)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	in = validEventInput()
	in.Name = " "
	_, err = f.svc.Submit(context.Background(), actor, in)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	in = validEventInput()
	in.Lat = 123
	_, err = f.svc.Submit(context.Background(), actor, in)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestEventCreateApproved(t *testing.T) {
	f := setupEventService(t)
	f.events.On("Create", mock.Anything, mock.MatchedBy(func(e *domain.Event) bool {
		return e.Status == domain.EventApproved && e.CreatedBy == domain.CreatedByAdmin
	})).Return(nil).Once()

	_, err := f.svc.CreateApproved(context.Background(), Actor{UserID: "admin", Role: domain.RoleAdmin}, validEventInput())
	require.NoError(t, err)
	assert.Equal(t, []string{event.TopicEventApproved}, f.pub.published())
}

func TestEventGet_Visibility(t *testing.T) {
	f := setupEventService(t)
	pending := &domain.Event{ID: "ev-2", Status: domain.EventPending, OrganizerID: strPtr("u1")}
	f.events.On("GetByID", mock.Anything, "ev-2").Return(pending, nil)
	ctx := context.Background()

	_, err := f.svc.Get(ctx, Actor{UserID: "u1", Role: domain.RoleUser}, "ev-2")
	assert.NoError(t, err)
	_, err = f.svc.Get(ctx, Actor{UserID: "admin", Role: domain.RoleAdmin}, "ev-2")
	assert.NoError(t, err)
	_, err = f.svc.Get(ctx, Actor{UserID: "u2", Role: domain.RoleUser}, "ev-2")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestEventListApproved(t *testing.T) {
	f := setupEventService(t)
	f.events.On("List", mock.Anything, domain.EventFilter{Status: domain.EventApproved, Suburb: "Carlton", Type: domain.EventTypeFoodBank}).
		Return([]domain.Event{*approvedEvent()}, nil).Once()

	got, err := f.svc.ListApproved(context.Background(), " Carlton ", domain.EventTypeFoodBank)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	_, err = f.svc.ListApproved(context.Background(), "", "Rave")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestEventApprove(t *testing.T) {
	f := setupEventService(t)
	f.events.On("GetByID", mock.Anything, "ev-2").Return(&domain.Event{ID: "ev-2", Status: domain.EventPending}, nil).Once()
	f.events.On("UpdateStatus", mock.Anything, "ev-2", domain.EventApproved).Return(nil).Once()

	e, err := f.svc.Approve(context.Background(), "ev-2")
	require.NoError(t, err)
	assert.Equal(t, domain.EventApproved, e.Status)
	assert.Equal(t, []string{event.TopicEventApproved}, f.pub.published())
}

func TestEventReject_AlreadyRejectedIsNoop(t *testing.T) {
	f := setupEventService(t)
	f.events.On("GetByID", mock.Anything, "ev-2").Return(&domain.Event{ID: "ev-2", Status: domain.EventRejected}, nil).Once()

	_, err := f.svc.Reject(context.Background(), "ev-2")
	require.NoError(t, err)
	f.events.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestEventBook_SendsConfirmation(t *testing.T) {
	f := setupEventService(t)
	f.events.On("GetByID", mock.Anything, "ev-1").Return(approvedEvent(), nil).Once()
	f.events.On("Book", mock.Anything, "ev-1", "u1").Return(true, nil).Once()
	f.users.On("GetByID", mock.Anything, "u1").Return(&domain.User{ID: "u1", Email: "sam@example.com", DisplayName: "Sam"}, nil).Once()
	f.mailer.On("Send", mock.Anything, mock.MatchedBy(func(m notify.Message) bool {
		return m.To == "sam@example.com"
	})).Return(nil).Once()

	e, err := f.svc.Book(context.Background(), "ev-1", "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, e.BookingsCount)
	assert.Equal(t, []string{event.TopicEventBooked}, f.pub.published())
	f.mailer.AssertExpectations(t)
}

func TestEventBook_MailFailureIsIgnored(t *testing.T) {
	f := setupEventService(t)
	f.events.On("GetByID", mock.Anything, "ev-1").Return(approvedEvent(), nil).Once()
	f.events.On("Book", mock.Anything, "ev-1", "u1").Return(true, nil).Once()
	f.users.On("GetByID", mock.Anything, "u1").Return(&domain.User{ID: "u1", Email: "sam@example.com"}, nil).Once()
	f.mailer.On("Send", mock.Anything, mock.Anything).Return(errors.New("webhook down")).Once()

	_, err := f.svc.Book(context.Background(), "ev-1", "u1")
	assert.NoError(t, err)
}

func TestEventBook_Duplicate(t *testing.T) {
	f := setupEventService(t)
	existing := approvedEvent()
	existing.BookingsCount = 3
	f.events.On("GetByID", mock.Anything, "ev-1").Return(existing, nil).Once()
	f.events.On("Book", mock.Anything, "ev-1", "u1").Return(false, nil).Once()

	e, err := f.svc.Book(context.Background(), "ev-1", "u1")
	require.NoError(t, err)
	assert.Equal(t, 3, e.BookingsCount)
	assert.Empty(t, f.pub.published())
	f.mailer.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestEventBook_PendingEventIsInvalid(t *testing.T) {
	f := setupEventService(t)
	f.events.On("GetByID", mock.Anything, "ev-2").Return(&domain.Event{ID: "ev-2", Status: domain.EventPending}, nil).Once()

	_, err := f.svc.Book(context.Background(), "ev-2", "u1")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	f.events.AssertNotCalled(t, "Book", mock.Anything, mock.Anything, mock.Anything)
}

func TestEventCancelBooking(t *testing.T) {
	f := setupEventService(t)
	f.events.On("CancelBooking", mock.Anything, "ev-1", "u1").Return(nil).Once()
	f.events.On("CancelBooking", mock.Anything, "ev-1", "u2").Return(apperrors.NotFound("booking", "ev-1")).Once()
	ctx := context.Background()

	require.NoError(t, f.svc.CancelBooking(ctx, "ev-1", "u1"))
	assert.Equal(t, []string{event.TopicEventCancelled}, f.pub.published())

	err := f.svc.CancelBooking(ctx, "ev-1", "u2")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestEventUpdateAndDelete(t *testing.T) {
	f := setupEventService(t)
	f.events.On("GetByID", mock.Anything, "ev-1").Return(approvedEvent(), nil).Once()
	f.events.On("Update", mock.Anything, mock.MatchedBy(func(e *domain.Event) bool {
		return e.Name == "Beach Run" && e.Status == domain.EventApproved
	})).Return(nil).Once()
	f.events.On("Delete", mock.Anything, "ev-1").Return(nil).Once()
	ctx := context.Background()

	in := validEventInput()
	in.Name = "Beach Run"
	_, err := f.svc.Update(ctx, "ev-1", in)
	require.NoError(t, err)
	require.NoError(t, f.svc.Delete(ctx, "ev-1"))
	f.events.AssertExpectations(t)
}
