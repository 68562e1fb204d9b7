package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hearthlist/relay/pkg/domain/interfaces"
	"github.com/hearthlist/relay/pkg/domain/model"
	"github.com/hearthlist/relay/pkg/domain/types"
	"github.com/hearthlist/relay/pkg/utils/async"
	"github.com/hearthlist/relay/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// Engine is the offline action synchronization engine. It captures every
// client-side mutation as a durable action record, replays the queue
// against the remote API when connectivity allows, and serves optimistic
// reads that combine confirmed snapshots with still-pending mutations.
//
// The engine is the only writer of the queue and the entity cache; the UI
// layer reads through Overlay and the pending accessors.
type Engine struct {
	repo   interfaces.Repository
	remote interfaces.RemoteAPI
	conn   interfaces.Connectivity

	mu      sync.Mutex
	queue   []*model.ActionRecord
	nextSeq int64

	// syncing is the single-flight guard: only one logical sync pass may
	// run at a time, a concurrent trigger is a no-op.
	syncing atomic.Bool

	onTerminal  func(ctx context.Context, failure *model.TerminalFailure)
	unsubscribe func()
}

type Option func(*Engine)

// WithTerminalHandler registers a callback invoked once per permanently
// failed action, so the UI can flag the affected entity for manual
// recovery. The handler must not block.
func WithTerminalHandler(handler func(ctx context.Context, failure *model.TerminalFailure)) Option {
	return func(e *Engine) {
		e.onTerminal = handler
	}
}

// New creates an engine with injected collaborators. The in-memory queue
// mirror is rebuilt from the repository, so actions enqueued before a
// process restart resume in their original order. An offline-to-online
// transition of the connectivity signal triggers a sync pass.
func New(ctx context.Context, repo interfaces.Repository, remote interfaces.RemoteAPI, conn interfaces.Connectivity, opts ...Option) (*Engine, error) {
	e := &Engine{
		repo:   repo,
		remote: remote,
		conn:   conn,
	}
	for _, opt := range opts {
		opt(e)
	}

	queued, err := repo.Queue().ListAll(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load queued actions")
	}
	e.queue = queued
	for _, action := range queued {
		if action.Seq >= e.nextSeq {
			e.nextSeq = action.Seq + 1
		}
		// Recover records a previous run left mid-flight
		action.State = types.ActionStatePending
	}

	e.unsubscribe = conn.Subscribe(func(online bool) {
		if !online {
			return
		}
		logging.From(ctx).Info("connectivity restored, scheduling sync pass",
			"pending", e.PendingCount())
		async.Dispatch(ctx, e.Sync)
	})

	if len(queued) > 0 {
		logging.From(ctx).Info("recovered pending actions from store", "count", len(queued))
	}

	return e, nil
}

// Close detaches the engine from the connectivity signal. It does not
// close the repository, which the engine does not own.
func (e *Engine) Close() {
	if e.unsubscribe != nil {
		e.unsubscribe()
	}
}

// Input describes one mutation to capture
type Input struct {
	Kind       types.ActionKind
	EntityType types.EntityType
	// EntityID may be empty for create actions; a temporary client ID is
	// assigned and later rebound to the server-assigned ID.
	EntityID   types.EntityID
	Payload    model.Payload
	Target     model.Target
	MaxRetries int
}

// Enqueue captures a mutation: it assigns an ID and sequence, appends the
// record to the in-memory queue and durably persists it before returning.
// Delivery is fire-and-forget; a sync pass is scheduled when currently
// online. A persistence failure is returned as model.ErrPersistence and
// leaves no trace in the queue.
func (e *Engine) Enqueue(ctx context.Context, input Input) (*model.ActionRecord, error) {
	entityID := input.EntityID
	if entityID == "" {
		if input.Kind != types.ActionKindCreate {
			return nil, goerr.New("entity ID is required", goerr.V("kind", input.Kind))
		}
		entityID = types.NewTemporaryEntityID()
	}

	maxRetries := input.MaxRetries
	if maxRetries == 0 {
		maxRetries = model.DefaultMaxRetries
	}

	e.mu.Lock()
	action := &model.ActionRecord{
		ID:         types.NewActionID(),
		Kind:       input.Kind,
		EntityType: input.EntityType,
		EntityID:   entityID,
		Payload:    input.Payload.Clone(),
		Target:     input.Target.Clone(),
		Seq:        e.nextSeq,
		EnqueuedAt: time.Now().UTC(),
		MaxRetries: maxRetries,
		State:      types.ActionStatePending,
	}

	if err := action.Validate(); err != nil {
		e.mu.Unlock()
		return nil, goerr.Wrap(err, "invalid mutation")
	}

	if err := e.repo.Queue().Add(ctx, action); err != nil {
		e.mu.Unlock()
		return nil, goerr.Wrap(model.ErrPersistence, "failed to persist action",
			goerr.V("action_id", action.ID),
			goerr.V("entity_type", action.EntityType),
			goerr.V("cause", err.Error()))
	}

	e.nextSeq++
	e.queue = append(e.queue, action)
	e.mu.Unlock()

	logging.From(ctx).Debug("action enqueued",
		"action_id", action.ID.String(),
		"kind", action.Kind.String(),
		"entity_type", action.EntityType.String(),
		"entity_id", action.EntityID.String())

	if e.conn.Online() {
		async.Dispatch(ctx, e.Sync)
	}

	return action.Clone(), nil
}

// PendingCount returns the number of unresolved queued actions
func (e *Engine) PendingCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.queue)
}

// PendingForEntity reports whether any queued action targets the entity
func (e *Engine) PendingForEntity(entityType types.EntityType, entityID types.EntityID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, action := range e.queue {
		if action.EntityType == entityType && action.EntityID == entityID {
			return true
		}
	}
	return false
}

// pendingFor returns clones of queued actions for the entity, in queue order
func (e *Engine) pendingFor(entityType types.EntityType, entityID types.EntityID) []*model.ActionRecord {
	e.mu.Lock()
	defer e.mu.Unlock()

	matched := make([]*model.ActionRecord, 0)
	for _, action := range e.queue {
		if action.EntityType == entityType && action.EntityID == entityID {
			matched = append(matched, action.Clone())
		}
	}
	return matched
}

// removeFromQueue drops the record from the in-memory mirror
func (e *Engine) removeFromQueue(id types.ActionID) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i, action := range e.queue {
		if action.ID == id {
			e.queue = append(e.queue[:i], e.queue[i+1:]...)
			return
		}
	}
}
