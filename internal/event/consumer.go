package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/azha0089/HealthyLife/internal/repository"
	pkgkafka "github.com/azha0089/HealthyLife/pkg/kafka"
)

// CacheTopics are the topics the cache invalidator subscribes to.
var CacheTopics = []string{
	TopicRatingSubmitted,
	TopicRecipeCreated,
	TopicRecipeUpdated,
	TopicRecipeDeleted,
}

// CacheInvalidator keeps the Redis caches consistent with rating and recipe
// changes made by any API instance.
type CacheInvalidator struct {
	popular repository.PopularRecipeCache
	refs    repository.RecipeRefCache
	logger  *slog.Logger
}

// NewCacheInvalidator creates the cache invalidation handler.
func NewCacheInvalidator(popular repository.PopularRecipeCache, refs repository.RecipeRefCache, logger *slog.Logger) *CacheInvalidator {
	return &CacheInvalidator{popular: popular, refs: refs, logger: logger}
}

// Handle processes one event. It satisfies pkgkafka.Handler.
func (c *CacheInvalidator) Handle(ctx context.Context, event *pkgkafka.Event) error {
	switch event.EventType {
	case TopicRatingSubmitted, TopicRecipeCreated, TopicRecipeUpdated:
		return c.invalidatePopular(ctx, event)
	case TopicRecipeDeleted:
		return c.handleRecipeDeleted(ctx, event)
	default:
		c.logger.WarnContext(ctx, "unknown event type received",
			slog.String("event_type", event.EventType),
			slog.String("event_id", event.EventID),
		)
		return nil
	}
}

func (c *CacheInvalidator) invalidatePopular(ctx context.Context, event *pkgkafka.Event) error {
	if err := c.popular.Invalidate(ctx); err != nil {
		return fmt.Errorf("invalidate popular recipes on %s: %w", event.EventType, err)
	}
	c.logger.DebugContext(ctx, "invalidated popular recipes",
		slog.String("event_type", event.EventType),
		slog.String("recipe_id", event.AggregateID),
	)
	return nil
}

func (c *CacheInvalidator) handleRecipeDeleted(ctx context.Context, event *pkgkafka.Event) error {
	var data RecipeChangedData
	if err := event.UnmarshalData(&data); err != nil {
		return fmt.Errorf("unmarshal recipe.deleted data: %w", err)
	}
	if err := c.refs.Evict(ctx, data.Key); err != nil {
		return fmt.Errorf("evict recipe refs: %w", err)
	}
	return c.invalidatePopular(ctx, event)
}
