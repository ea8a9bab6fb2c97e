package repository

import (
	"context"
	"encoding/json"

	"github.com/JoseMS22/JyA-Innersport-sub000/internal/domain"
)

// CollectionRepository persists identity-scoped storefront collections as
// versioned JSON documents. A load whose stored schema version differs from
// the requested one behaves like a miss: the caller starts from an empty
// collection rather than guessing at a migration.
type CollectionRepository interface {
	// Load returns the raw document for a collection owned by identity, or
	// a not-found error when absent or written under another schema version.
	Load(ctx context.Context, collection string, identity domain.Identity, schemaVersion int) (json.RawMessage, error)

	// Store writes the document under the identity's key for the collection.
	Store(ctx context.Context, collection string, identity domain.Identity, schemaVersion int, data json.RawMessage) error

	// Delete removes the identity's document for the collection.
	Delete(ctx context.Context, collection string, identity domain.Identity) error
}
