package memory

import (
	"context"
	"sync"

	"github.com/hearthlist/relay/pkg/domain/model"
	"github.com/hearthlist/relay/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
)

type queueRepository struct {
	mu      sync.RWMutex
	order   []types.ActionID
	actions map[types.ActionID]*model.ActionRecord
}

func newQueueRepository() *queueRepository {
	return &queueRepository{
		actions: make(map[types.ActionID]*model.ActionRecord),
	}
}

func (r *queueRepository) Add(ctx context.Context, action *model.ActionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.actions[action.ID]; exists {
		return goerr.Wrap(ErrDuplicate, "action already queued", goerr.V("id", action.ID))
	}

	r.actions[action.ID] = action.Clone()
	r.order = append(r.order, action.ID)
	return nil
}

func (r *queueRepository) ListAll(ctx context.Context) ([]*model.ActionRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	actions := make([]*model.ActionRecord, 0, len(r.order))
	for _, id := range r.order {
		actions = append(actions, r.actions[id].Clone())
	}
	return actions, nil
}

func (r *queueRepository) Update(ctx context.Context, action *model.ActionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.actions[action.ID]; !exists {
		return goerr.Wrap(ErrNotFound, "action not found", goerr.V("id", action.ID))
	}

	r.actions[action.ID] = action.Clone()
	return nil
}

func (r *queueRepository) Remove(ctx context.Context, id types.ActionID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.actions[id]; !exists {
		return goerr.Wrap(ErrNotFound, "action not found", goerr.V("id", id))
	}

	delete(r.actions, id)
	for i, queued := range r.order {
		if queued == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}
