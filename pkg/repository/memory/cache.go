package memory

import (
	"context"
	"sync"

	"github.com/hearthlist/relay/pkg/domain/model"
	"github.com/hearthlist/relay/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
)

// cacheKey is a composite key for entity snapshots
type cacheKey struct {
	entityType types.EntityType
	entityID   types.EntityID
}

type cacheRepository struct {
	mu        sync.RWMutex
	snapshots map[cacheKey]*model.EntitySnapshot
}

func newCacheRepository() *cacheRepository {
	return &cacheRepository{
		snapshots: make(map[cacheKey]*model.EntitySnapshot),
	}
}

func (r *cacheRepository) Get(ctx context.Context, entityType types.EntityType, entityID types.EntityID) (*model.EntitySnapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snapshot, exists := r.snapshots[cacheKey{entityType: entityType, entityID: entityID}]
	if !exists {
		return nil, goerr.Wrap(ErrNotFound, "snapshot not found",
			goerr.V("entity_type", entityType), goerr.V("entity_id", entityID))
	}
	return snapshot.Clone(), nil
}

func (r *cacheRepository) Put(ctx context.Context, snapshot *model.EntitySnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := cacheKey{entityType: snapshot.EntityType, entityID: snapshot.EntityID}
	r.snapshots[key] = snapshot.Clone()
	return nil
}

func (r *cacheRepository) Delete(ctx context.Context, entityType types.EntityType, entityID types.EntityID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.snapshots, cacheKey{entityType: entityType, entityID: entityID})
	return nil
}
