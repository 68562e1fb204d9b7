package engine

import (
	"context"
	"strings"
	"time"

	"github.com/hearthlist/relay/pkg/domain/model"
	"github.com/hearthlist/relay/pkg/domain/types"
	"github.com/hearthlist/relay/pkg/utils/errutil"
	"github.com/hearthlist/relay/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// Sync drains the queue against the remote API. Only one logical pass runs
// at a time; a concurrent invocation returns immediately. Each pass is
// bounded to the records queued when it started, so a persistently failing
// record cannot starve later passes. Actions enqueued while a pass runs
// are handled by a follow-up pass before Sync returns.
//
// Transient delivery failures never escape this method; the returned error
// reports local bookkeeping problems only.
func (e *Engine) Sync(ctx context.Context) error {
	for {
		if !e.conn.Online() {
			return nil
		}
		if !e.syncing.CompareAndSwap(false, true) {
			return nil
		}

		again, err := func() (bool, error) {
			// Clear the single-flight guard exactly once, however the
			// pass ends.
			defer e.syncing.Store(false)
			return e.runPass(ctx)
		}()
		if err != nil || !again {
			return err
		}
	}
}

// runPass processes the records queued at entry, in order. It reports
// whether new actions were enqueued during the pass.
func (e *Engine) runPass(ctx context.Context) (bool, error) {
	e.mu.Lock()
	if len(e.queue) == 0 {
		e.mu.Unlock()
		return false, nil
	}
	startSeq := e.nextSeq
	ids := make([]types.ActionID, len(e.queue))
	for i, action := range e.queue {
		ids[i] = action.ID
	}
	e.mu.Unlock()

	logging.From(ctx).Debug("sync pass started", "queued", len(ids))

	for _, id := range ids {
		if !e.conn.Online() {
			// Went offline mid-pass; the rest stays queued for the next
			// reconnection.
			logging.From(ctx).Info("connectivity lost during sync pass")
			return false, nil
		}
		if err := e.deliver(ctx, id); err != nil {
			return false, err
		}
	}

	e.mu.Lock()
	remaining := len(e.queue)
	enqueuedDuring := e.nextSeq != startSeq
	e.mu.Unlock()

	logging.From(ctx).Debug("sync pass finished", "remaining", remaining)

	// Records kept for retry wait for the next enqueue or reconnection
	// trigger rather than spinning against a degraded server.
	return enqueuedDuring && remaining > 0, nil
}

// deliver executes a single delivery attempt for the record with the given
// ID. The record may have been removed meanwhile (id-rebinding failure of
// an earlier create), in which case this is a no-op.
func (e *Engine) deliver(ctx context.Context, id types.ActionID) error {
	e.mu.Lock()
	action := e.lookupLocked(id)
	if action == nil {
		e.mu.Unlock()
		return nil
	}
	if err := action.Transition(types.ActionStateInFlight); err != nil {
		e.mu.Unlock()
		return errutil.Handle(ctx, err, "cannot start delivery")
	}
	attempt := action.Clone()
	e.mu.Unlock()

	response, err := e.remote.Execute(ctx, attempt)
	if err != nil {
		return e.handleFailure(ctx, id, err)
	}
	return e.handleSuccess(ctx, attempt, response)
}

// handleSuccess removes the resolved record and updates the entity cache
// from the server's response.
func (e *Engine) handleSuccess(ctx context.Context, attempt *model.ActionRecord, response model.Payload) error {
	e.removeFromQueue(attempt.ID)
	if err := e.repo.Queue().Remove(ctx, attempt.ID); err != nil {
		return errutil.Handle(ctx, err, "failed to remove resolved action from store")
	}

	logging.From(ctx).Debug("action delivered",
		"action_id", attempt.ID.String(),
		"kind", attempt.Kind.String(),
		"entity_type", attempt.EntityType.String(),
		"entity_id", attempt.EntityID.String())

	switch attempt.Kind {
	case types.ActionKindDelete:
		// Tombstone, not mere absence: a stale update response for the
		// same entity must not resurrect it.
		return e.repo.Cache().Put(ctx, &model.EntitySnapshot{
			EntityType: attempt.EntityType,
			EntityID:   attempt.EntityID,
			Tombstone:  true,
			UpdatedAt:  time.Now().UTC(),
		})

	case types.ActionKindCreate:
		return e.resolveCreate(ctx, attempt, response)

	default:
		data := response
		if data == nil {
			// Confirmed without a body; fold the delta onto the last
			// snapshot locally.
			if existing, err := e.repo.Cache().Get(ctx, attempt.EntityType, attempt.EntityID); err == nil {
				if existing.Tombstone {
					return nil
				}
				data = existing.Data.Merge(attempt.Payload)
			} else {
				data = attempt.Payload.Clone()
			}
		}
		return e.writeConfirmed(ctx, attempt.EntityType, attempt.EntityID, data)
	}
}

// resolveCreate rebinds the temporary client ID to the server-assigned one
// and records the confirmed snapshot under the server ID.
func (e *Engine) resolveCreate(ctx context.Context, attempt *model.ActionRecord, response model.Payload) error {
	serverID, ok := response["id"].(string)
	if !ok || serverID == "" {
		return e.failRebinding(ctx, attempt)
	}

	tempID := attempt.EntityID
	if types.EntityID(serverID) != tempID {
		if err := e.rebindQueued(ctx, attempt.EntityType, tempID, types.EntityID(serverID)); err != nil {
			return err
		}
		// Any optimistic leftovers keyed by the temporary ID are stale now
		if err := e.repo.Cache().Delete(ctx, attempt.EntityType, tempID); err != nil {
			return errutil.Handle(ctx, err, "failed to drop temporary cache entry")
		}
	}

	return e.writeConfirmed(ctx, attempt.EntityType, types.EntityID(serverID), response)
}

// rebindQueued rewrites the entity ID and target path of every still-queued
// action that references the temporary ID, before its own delivery turn.
func (e *Engine) rebindQueued(ctx context.Context, entityType types.EntityType, tempID, serverID types.EntityID) error {
	e.mu.Lock()
	rebound := make([]*model.ActionRecord, 0)
	for _, action := range e.queue {
		if action.EntityType != entityType || action.EntityID != tempID {
			continue
		}
		action.EntityID = serverID
		action.Target.Path = strings.ReplaceAll(action.Target.Path, tempID.String(), serverID.String())
		rebound = append(rebound, action.Clone())
	}
	e.mu.Unlock()

	for _, action := range rebound {
		if err := e.repo.Queue().Update(ctx, action); err != nil {
			return errutil.Handle(ctx, err, "failed to persist rebound action")
		}
		logging.From(ctx).Debug("queued action rebound to server ID",
			"action_id", action.ID.String(),
			"temp_id", tempID.String(),
			"server_id", serverID.String())
	}
	return nil
}

// failRebinding terminally fails a create whose response lacked an ID,
// together with every queued action targeting its temporary ID. Leaving
// them queued would silently target a nonexistent remote entity.
func (e *Engine) failRebinding(ctx context.Context, attempt *model.ActionRecord) error {
	tempID := attempt.EntityID
	cause := goerr.Wrap(model.ErrIDRebinding, "cannot determine server ID",
		goerr.V("action_id", attempt.ID),
		goerr.V("entity_type", attempt.EntityType),
		goerr.V("temp_id", tempID))

	e.notifyTerminal(ctx, attempt, cause)

	e.mu.Lock()
	dependents := make([]*model.ActionRecord, 0)
	kept := e.queue[:0]
	for _, action := range e.queue {
		if action.EntityType == attempt.EntityType && action.EntityID == tempID {
			dependents = append(dependents, action)
		} else {
			kept = append(kept, action)
		}
	}
	e.queue = kept
	e.mu.Unlock()

	for _, action := range dependents {
		if err := e.repo.Queue().Remove(ctx, action.ID); err != nil {
			return errutil.Handle(ctx, err, "failed to remove dependent action from store")
		}
		e.notifyTerminal(ctx, action.Clone(), goerr.Wrap(model.ErrIDRebinding,
			"queued against a temporary ID that was never bound",
			goerr.V("action_id", action.ID),
			goerr.V("temp_id", tempID)))
	}
	return nil
}

// handleFailure applies the retry policy to a failed delivery attempt. The
// record stays queued for the next pass while budget remains; it is not
// retried within the same pass, so a failing record cannot starve the
// actions behind it.
func (e *Engine) handleFailure(ctx context.Context, id types.ActionID, cause error) error {
	e.mu.Lock()
	action := e.lookupLocked(id)
	if action == nil {
		e.mu.Unlock()
		return nil
	}

	action.RetryCount++
	if action.RetriesLeft() {
		if err := action.Transition(types.ActionStatePending); err != nil {
			e.mu.Unlock()
			return errutil.Handle(ctx, err, "cannot requeue failed action")
		}
		requeued := action.Clone()
		e.mu.Unlock()

		logging.From(ctx).Warn("delivery failed, will retry",
			"action_id", requeued.ID.String(),
			"entity_type", requeued.EntityType.String(),
			"entity_id", requeued.EntityID.String(),
			"attempt", requeued.RetryCount,
			"max_retries", requeued.MaxRetries,
			"error", cause.Error())

		if err := e.repo.Queue().Update(ctx, requeued); err != nil {
			return errutil.Handle(ctx, err, "failed to persist retry count")
		}
		return nil
	}

	if err := action.Transition(types.ActionStateExhausted); err != nil {
		e.mu.Unlock()
		return errutil.Handle(ctx, err, "cannot exhaust failed action")
	}
	exhausted := action.Clone()
	e.mu.Unlock()

	e.removeFromQueue(id)
	if err := e.repo.Queue().Remove(ctx, id); err != nil {
		return errutil.Handle(ctx, err, "failed to remove exhausted action from store")
	}

	e.notifyTerminal(ctx, exhausted, goerr.Wrap(model.ErrTerminalDelivery, "retry budget exhausted",
		goerr.V("action_id", exhausted.ID),
		goerr.V("attempts", exhausted.RetryCount),
		goerr.V("cause", cause.Error())))
	return nil
}

// writeConfirmed stores a server-confirmed snapshot unless the entity is
// tombstoned.
func (e *Engine) writeConfirmed(ctx context.Context, entityType types.EntityType, entityID types.EntityID, data model.Payload) error {
	if existing, err := e.repo.Cache().Get(ctx, entityType, entityID); err == nil && existing.Tombstone {
		logging.From(ctx).Debug("skipping cache write for deleted entity",
			"entity_type", entityType.String(), "entity_id", entityID.String())
		return nil
	}

	return e.repo.Cache().Put(ctx, &model.EntitySnapshot{
		EntityType: entityType,
		EntityID:   entityID,
		Data:       data.Clone(),
		UpdatedAt:  time.Now().UTC(),
	})
}

// notifyTerminal logs a permanently failed action and invokes the
// registered terminal handler exactly once for it.
func (e *Engine) notifyTerminal(ctx context.Context, action *model.ActionRecord, cause error) {
	logging.From(ctx).Error("action permanently failed, change is lost client-side",
		"action_id", action.ID.String(),
		"kind", action.Kind.String(),
		"entity_type", action.EntityType.String(),
		"entity_id", action.EntityID.String(),
		"attempts", action.RetryCount,
		"error", cause.Error())

	if e.onTerminal != nil {
		e.onTerminal(ctx, &model.TerminalFailure{
			Action:     action,
			Attempts:   action.RetryCount,
			Cause:      cause,
			OccurredAt: time.Now().UTC(),
		})
	}
}

// lookupLocked returns the live queued record with the given ID. Caller
// must hold e.mu.
func (e *Engine) lookupLocked(id types.ActionID) *model.ActionRecord {
	for _, action := range e.queue {
		if action.ID == id {
			return action
		}
	}
	return nil
}
