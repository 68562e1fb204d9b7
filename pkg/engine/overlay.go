package engine

import (
	"context"

	"github.com/hearthlist/relay/pkg/domain/model"
	"github.com/hearthlist/relay/pkg/domain/types"
	"github.com/hearthlist/relay/pkg/utils/errutil"
	"github.com/m-mizutani/goerr/v2"
)

// Overlay returns the optimistic value of an entity: the last confirmed
// snapshot with every still-queued action for the entity folded on top in
// enqueue order. It is a pure read and never mutates engine state, so two
// consecutive calls without intervening enqueue or sync return identical
// results.
//
// Fold rules: create and update shallow-merge their payload into the
// running value; delete resets it to absent, and only a later create can
// start a fresh value for the entity again.
func (e *Engine) Overlay(ctx context.Context, entityType types.EntityType, entityID types.EntityID) (*model.View, error) {
	var value model.Payload
	exists := false
	deleted := false

	snapshot, err := e.repo.Cache().Get(ctx, entityType, entityID)
	switch {
	case err == nil && snapshot.Tombstone:
		deleted = true
	case err == nil:
		value = snapshot.Data.Clone()
		exists = true
	default:
		// No confirmed state; the fold starts from absent
	}

	pending := e.pendingFor(entityType, entityID)
	for _, action := range pending {
		switch action.Kind {
		case types.ActionKindCreate:
			if !exists {
				value = nil
			}
			value = value.Merge(action.Payload)
			exists = true
			deleted = false

		case types.ActionKindUpdate:
			if deleted {
				// The entity was deleted earlier in the fold; an update
				// cannot resurrect it.
				continue
			}
			value = value.Merge(action.Payload)
			exists = true

		case types.ActionKindDelete:
			value = nil
			exists = false
			deleted = true

		default:
			return nil, errutil.Handle(ctx, goerr.New("queued action has invalid kind",
				goerr.V("action_id", action.ID), goerr.V("kind", action.Kind)), "broken queue record")
		}
	}

	view := &model.View{
		Exists:  exists,
		Pending: len(pending) > 0,
	}
	if exists {
		view.Data = value
	}
	return view, nil
}
