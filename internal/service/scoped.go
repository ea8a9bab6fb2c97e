package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/JoseMS22/JyA-Innersport-sub000/internal/domain"
	"github.com/JoseMS22/JyA-Innersport-sub000/internal/repository"
	apperrors "github.com/JoseMS22/JyA-Innersport-sub000/pkg/errors"
)

// ScopedCollection is a typed, identity-scoped view over a persisted
// collection. Every mutation runs against a generation snapshot: when
// Invalidate moves the generation for an identity while a mutation is in
// flight, the mutation's write is discarded instead of resurrecting data
// that belongs to a session that no longer exists.
type ScopedCollection[T any] struct {
	repo          repository.CollectionRepository
	collection    string
	schemaVersion int
	empty         func() T

	mu          sync.Mutex
	generations map[string]uint64
}

// NewScopedCollection creates a scoped view over a named collection. empty
// builds the zero collection handed out when nothing is stored yet.
func NewScopedCollection[T any](repo repository.CollectionRepository, collection string, schemaVersion int, empty func() T) *ScopedCollection[T] {
	return &ScopedCollection[T]{
		repo:          repo,
		collection:    collection,
		schemaVersion: schemaVersion,
		empty:         empty,
		generations:   make(map[string]uint64),
	}
}

func (c *ScopedCollection[T]) generation(identity domain.Identity) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generations[identity.StorageKey(c.collection)]
}

// Invalidate bumps the generation for an identity. Any mutation started
// before the bump will have its write discarded. Call it on sign-in,
// sign-out, and whenever another actor rewrites the identity's data.
func (c *ScopedCollection[T]) Invalidate(identity domain.Identity) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generations[identity.StorageKey(c.collection)]++
}

// Load returns the identity's collection, or the empty collection when
// nothing is stored or the stored document predates the current schema.
func (c *ScopedCollection[T]) Load(ctx context.Context, identity domain.Identity) (T, error) {
	raw, err := c.repo.Load(ctx, c.collection, identity, c.schemaVersion)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return c.empty(), nil
		}
		var zero T
		return zero, fmt.Errorf("load %s: %w", c.collection, err)
	}

	value := c.empty()
	if err := json.Unmarshal(raw, &value); err != nil {
		var zero T
		return zero, fmt.Errorf("unmarshal %s: %w", c.collection, err)
	}
	return value, nil
}

// Mutate loads the identity's collection, applies fn, and stores the result.
// If the identity's generation moved while fn ran the write is dropped and a
// conflict error is returned; the caller re-reads and decides whether to
// retry under the new identity state.
func (c *ScopedCollection[T]) Mutate(ctx context.Context, identity domain.Identity, fn func(*T) error) (T, error) {
	var zero T

	snapshot := c.generation(identity)

	value, err := c.Load(ctx, identity)
	if err != nil {
		return zero, err
	}

	if err := fn(&value); err != nil {
		return zero, err
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return zero, fmt.Errorf("marshal %s: %w", c.collection, err)
	}

	c.mu.Lock()
	current := c.generations[identity.StorageKey(c.collection)]
	c.mu.Unlock()
	if current != snapshot {
		return zero, apperrors.Conflict(fmt.Sprintf("%s write superseded by an identity change", c.collection))
	}

	if err := c.repo.Store(ctx, c.collection, identity, c.schemaVersion, raw); err != nil {
		return zero, fmt.Errorf("store %s: %w", c.collection, err)
	}

	return value, nil
}

// Clear removes the identity's collection and invalidates in-flight writes.
func (c *ScopedCollection[T]) Clear(ctx context.Context, identity domain.Identity) error {
	c.Invalidate(identity)
	if err := c.repo.Delete(ctx, c.collection, identity); err != nil {
		return fmt.Errorf("clear %s: %w", c.collection, err)
	}
	return nil
}
