package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/JoseMS22/JyA-Innersport-sub000/internal/domain"
	apperrors "github.com/JoseMS22/JyA-Innersport-sub000/pkg/errors"
)

const keyPrefix = "storefront:"

// envelope wraps a stored collection with the schema version it was written
// under, so a reader can tell apart its own format from a stale one.
type envelope struct {
	SchemaVersion int             `json:"schema_version"`
	Data          json.RawMessage `json:"data"`
}

// CollectionRepository implements repository.CollectionRepository using Redis.
type CollectionRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCollectionRepository creates a new Redis-backed collection repository.
func NewCollectionRepository(client *redis.Client, ttl time.Duration) *CollectionRepository {
	return &CollectionRepository{
		client: client,
		ttl:    ttl,
	}
}

// Load retrieves an identity's collection document from Redis. A missing key
// and a schema-version mismatch both surface as not found; a mismatched
// document is dropped so the next write starts clean.
func (r *CollectionRepository) Load(ctx context.Context, collection string, identity domain.Identity, schemaVersion int) (json.RawMessage, error) {
	key := keyPrefix + identity.StorageKey(collection)

	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, apperrors.NotFound(collection, identity.String())
		}
		return nil, fmt.Errorf("redis get %s: %w", collection, err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("unmarshal %s envelope: %w", collection, err)
	}

	if env.SchemaVersion != schemaVersion {
		if err := r.client.Del(ctx, key).Err(); err != nil {
			return nil, fmt.Errorf("redis del stale %s: %w", collection, err)
		}
		return nil, apperrors.NotFound(collection, identity.String())
	}

	return env.Data, nil
}

// Store persists an identity's collection document with the configured TTL.
func (r *CollectionRepository) Store(ctx context.Context, collection string, identity domain.Identity, schemaVersion int, data json.RawMessage) error {
	key := keyPrefix + identity.StorageKey(collection)

	raw, err := json.Marshal(envelope{SchemaVersion: schemaVersion, Data: data})
	if err != nil {
		return fmt.Errorf("marshal %s envelope: %w", collection, err)
	}

	if err := r.client.Set(ctx, key, raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", collection, err)
	}

	return nil
}

// Delete removes an identity's collection document from Redis.
func (r *CollectionRepository) Delete(ctx context.Context, collection string, identity domain.Identity) error {
	key := keyPrefix + identity.StorageKey(collection)

	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", collection, err)
	}

	return nil
}

// Ping checks connectivity to Redis for health probes.
func (r *CollectionRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
