package interfaces

import (
	"context"

	"github.com/hearthlist/relay/pkg/domain/model"
	"github.com/hearthlist/relay/pkg/domain/types"
)

// Repository defines the interface for on-device persistence
type Repository interface {
	Queue() QueueRepository
	Cache() CacheRepository
	Close() error
}

// QueueRepository defines the interface for the durable action queue.
// Records must survive a full process restart and keep insertion order.
type QueueRepository interface {
	// Add persists a new action record
	Add(ctx context.Context, action *model.ActionRecord) error

	// ListAll retrieves all pending action records ordered by sequence
	ListAll(ctx context.Context) ([]*model.ActionRecord, error)

	// Update persists mutable bookkeeping of an existing record
	// (retry count, rebound entity ID and target)
	Update(ctx context.Context, action *model.ActionRecord) error

	// Remove deletes a resolved or exhausted record by ID
	Remove(ctx context.Context, id types.ActionID) error
}

// CacheRepository defines the interface for entity cache snapshots,
// keyed by (entityType, entityID)
type CacheRepository interface {
	// Get retrieves a snapshot. Returns a NotFound error when neither a
	// value nor a tombstone is recorded for the entity.
	Get(ctx context.Context, entityType types.EntityType, entityID types.EntityID) (*model.EntitySnapshot, error)

	// Put stores or replaces a snapshot
	Put(ctx context.Context, snapshot *model.EntitySnapshot) error

	// Delete removes a snapshot entirely (including tombstones)
	Delete(ctx context.Context, entityType types.EntityType, entityID types.EntityID) error
}
