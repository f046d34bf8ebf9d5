package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/srgjo27/ticket_admission/internal/core/domain"
)

// AvailabilityCache keeps a short-lived copy of per-event availability.
// It only serves reads; admission decisions always recompute inside a
// transaction.
type AvailabilityCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewAvailabilityCache(client *redis.Client, ttl time.Duration) *AvailabilityCache {
	return &AvailabilityCache{client: client, ttl: ttl}
}

func availabilityKey(eventID uuid.UUID) string {
	return fmt.Sprintf("availability:%s", eventID.String())
}

func (c *AvailabilityCache) Get(ctx context.Context, eventID uuid.UUID) ([]domain.Availability, bool, error) {
	data, err := c.client.Get(ctx, availabilityKey(eventID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var availability []domain.Availability
	if err := json.Unmarshal([]byte(data), &availability); err != nil {
		return nil, false, fmt.Errorf("decode cached availability: %w", err)
	}

	return availability, true, nil
}

func (c *AvailabilityCache) Set(ctx context.Context, eventID uuid.UUID, availability []domain.Availability) error {
	data, err := json.Marshal(availability)
	if err != nil {
		return err
	}

	return c.client.Set(ctx, availabilityKey(eventID), data, c.ttl).Err()
}

func (c *AvailabilityCache) Invalidate(ctx context.Context, eventID uuid.UUID) error {
	return c.client.Del(ctx, availabilityKey(eventID)).Err()
}
