package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/azha0089/HealthyLife/internal/domain"
	pkgkafka "github.com/azha0089/HealthyLife/pkg/kafka"
)

// Kafka topics for HealthyLife domain events.
var (
	TopicRatingSubmitted = pkgkafka.Topic("rating", "submitted")

	TopicRecipeCreated = pkgkafka.Topic("recipe", "created")
	TopicRecipeUpdated = pkgkafka.Topic("recipe", "updated")
	TopicRecipeDeleted = pkgkafka.Topic("recipe", "deleted")

	TopicFavoriteAdded   = pkgkafka.Topic("favorite", "added")
	TopicFavoriteRemoved = pkgkafka.Topic("favorite", "removed")

	TopicEventSubmitted = pkgkafka.Topic("event", "submitted")
	TopicEventApproved  = pkgkafka.Topic("event", "approved")
	TopicEventRejected  = pkgkafka.Topic("event", "rejected")
	TopicEventBooked    = pkgkafka.Topic("event", "booked")
	TopicEventCancelled = pkgkafka.Topic("event", "booking_cancelled")

	TopicUserRegistered = pkgkafka.Topic("user", "registered")
	TopicUserUpdated    = pkgkafka.Topic("user", "updated")
)

// Aggregate types.
const (
	AggregateRecipe = "recipe"
	AggregateEvent  = "event"
	AggregateUser   = "user"
)

// SourceAPI identifies events published by the API.
const SourceAPI = "healthylife-api"

// RatingSubmittedData is the payload of rating.submitted.
type RatingSubmittedData struct {
	RatingID       string  `json:"rating_id"`
	RecipeID       string  `json:"recipe_id"`
	UserID         string  `json:"user_id"`
	Rating         int     `json:"rating"`
	PreviousRating *int    `json:"previous_rating,omitempty"`
	Average        float64 `json:"average"`
	Count          int     `json:"count"`
}

// RecipeChangedData is the payload of recipe.created, recipe.updated and
// recipe.deleted.
type RecipeChangedData struct {
	Key      string `json:"doc_id"`
	LegacyID *int64 `json:"id,omitempty"`
	Title    string `json:"title,omitempty"`
	Category string `json:"category,omitempty"`
}

// FavoriteChangedData is the payload of favorite.added and favorite.removed.
type FavoriteChangedData struct {
	UserID   string `json:"user_id"`
	RecipeID string `json:"recipe_id"`
}

// EventChangedData is the payload of event moderation topics.
type EventChangedData struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Status      string `json:"status"`
	Type        string `json:"type"`
	Suburb      string `json:"suburb"`
	OrganizerID string `json:"organizer_id,omitempty"`
}

// BookingChangedData is the payload of event.booked and
// event.booking_cancelled.
type BookingChangedData struct {
	EventID string `json:"event_id"`
	UserID  string `json:"user_id"`
}

// UserData is the payload of user topics.
type UserData struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Publisher publishes an event envelope to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes HealthyLife domain events. A nil publisher turns every
// method into a no-op, which is how the API runs with Kafka disabled.
type Producer struct {
	kafka  Publisher
	logger *slog.Logger
}

// NewProducer creates a domain event producer.
func NewProducer(kafka Publisher, logger *slog.Logger) *Producer {
	return &Producer{kafka: kafka, logger: logger}
}

func (p *Producer) publish(ctx context.Context, topic, aggregateID, aggregateType string, data any) error {
	if p.kafka == nil {
		return nil
	}

	event, err := pkgkafka.NewEvent(ctx, topic, aggregateID, aggregateType, SourceAPI, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published event",
		slog.String("topic", topic),
		slog.String("event_id", event.EventID),
		slog.String("aggregate_id", aggregateID),
	)
	return nil
}

// PublishRatingSubmitted publishes rating.submitted.
func (p *Producer) PublishRatingSubmitted(ctx context.Context, data RatingSubmittedData) error {
	return p.publish(ctx, TopicRatingSubmitted, data.RecipeID, AggregateRecipe, data)
}

// PublishRecipeCreated publishes recipe.created.
func (p *Producer) PublishRecipeCreated(ctx context.Context, r *domain.Recipe) error {
	return p.publish(ctx, TopicRecipeCreated, r.Key, AggregateRecipe, recipeData(r))
}

// PublishRecipeUpdated publishes recipe.updated.
func (p *Producer) PublishRecipeUpdated(ctx context.Context, r *domain.Recipe) error {
	return p.publish(ctx, TopicRecipeUpdated, r.Key, AggregateRecipe, recipeData(r))
}

// PublishRecipeDeleted publishes recipe.deleted.
func (p *Producer) PublishRecipeDeleted(ctx context.Context, key string) error {
	return p.publish(ctx, TopicRecipeDeleted, key, AggregateRecipe, RecipeChangedData{Key: key})
}

// PublishFavoriteAdded publishes favorite.added.
func (p *Producer) PublishFavoriteAdded(ctx context.Context, userID, recipeKey string) error {
	return p.publish(ctx, TopicFavoriteAdded, recipeKey, AggregateRecipe, FavoriteChangedData{UserID: userID, RecipeID: recipeKey})
}

// PublishFavoriteRemoved publishes favorite.removed.
func (p *Producer) PublishFavoriteRemoved(ctx context.Context, userID, recipeKey string) error {
	return p.publish(ctx, TopicFavoriteRemoved, recipeKey, AggregateRecipe, FavoriteChangedData{UserID: userID, RecipeID: recipeKey})
}

// PublishEventStatus publishes the moderation topic matching e.Status.
func (p *Producer) PublishEventStatus(ctx context.Context, e *domain.Event) error {
	topic := TopicEventSubmitted
	switch e.Status {
	case domain.EventApproved:
		topic = TopicEventApproved
	case domain.EventRejected:
		topic = TopicEventRejected
	}

	data := EventChangedData{ID: e.ID, Name: e.Name, Status: string(e.Status), Type: e.Type, Suburb: e.Suburb}
	if e.OrganizerID != nil {
		data.OrganizerID = *e.OrganizerID
	}
	return p.publish(ctx, topic, e.ID, AggregateEvent, data)
}

// PublishBooked publishes event.booked.
func (p *Producer) PublishBooked(ctx context.Context, eventID, userID string) error {
	return p.publish(ctx, TopicEventBooked, eventID, AggregateEvent, BookingChangedData{EventID: eventID, UserID: userID})
}

// PublishBookingCancelled publishes event.booking_cancelled.
func (p *Producer) PublishBookingCancelled(ctx context.Context, eventID, userID string) error {
	return p.publish(ctx, TopicEventCancelled, eventID, AggregateEvent, BookingChangedData{EventID: eventID, UserID: userID})
}

// PublishUserRegistered publishes user.registered.
func (p *Producer) PublishUserRegistered(ctx context.Context, u *domain.User) error {
	return p.publish(ctx, TopicUserRegistered, u.ID, AggregateUser, UserData{ID: u.ID, Email: u.Email, Role: u.Role})
}

// PublishUserUpdated publishes user.updated.
func (p *Producer) PublishUserUpdated(ctx context.Context, u *domain.User) error {
	return p.publish(ctx, TopicUserUpdated, u.ID, AggregateUser, UserData{ID: u.ID, Email: u.Email, Role: u.Role})
}

func recipeData(r *domain.Recipe) RecipeChangedData {
	return RecipeChangedData{Key: r.Key, LegacyID: r.LegacyID, Title: r.Title, Category: r.Category}
}
