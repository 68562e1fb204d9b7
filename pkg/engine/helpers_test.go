package engine_test

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/m-mizutani/gt"

	"github.com/hearthlist/relay/pkg/domain/interfaces"
	"github.com/hearthlist/relay/pkg/domain/model"
	"github.com/hearthlist/relay/pkg/domain/types"
	"github.com/hearthlist/relay/pkg/engine"
	"github.com/hearthlist/relay/pkg/repository/memory"
)

// fakeRemote scripts delivery outcomes and records every attempt
type fakeRemote struct {
	mu       sync.Mutex
	attempts []*model.ActionRecord
	handler  func(action *model.ActionRecord) (model.Payload, error)
}

func (f *fakeRemote) Execute(ctx context.Context, action *model.ActionRecord) (model.Payload, error) {
	f.mu.Lock()
	f.attempts = append(f.attempts, action.Clone())
	handler := f.handler
	f.mu.Unlock()

	if handler == nil {
		return model.Payload{"id": action.EntityID.String()}, nil
	}
	return handler(action)
}

func (f *fakeRemote) attemptCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.attempts)
}

func (f *fakeRemote) lastAttemptOfKind(kind types.ActionKind) *model.ActionRecord {
	f.mu.Lock()
	defer f.mu.Unlock()

	var found *model.ActionRecord
	for _, a := range f.attempts {
		if a.Kind == kind {
			found = a
		}
	}
	return found
}

func (f *fakeRemote) attemptIDs() []types.ActionID {
	f.mu.Lock()
	defer f.mu.Unlock()

	ids := make([]types.ActionID, len(f.attempts))
	for i, a := range f.attempts {
		ids[i] = a.ID
	}
	return ids
}

// stubConn reports a switchable state without firing transition events,
// keeping tests free of background sync passes
type stubConn struct {
	online atomic.Bool
}

var _ interfaces.Connectivity = &stubConn{}

func newStubConn(online bool) *stubConn {
	c := &stubConn{}
	c.online.Store(online)
	return c
}

func (c *stubConn) Online() bool {
	return c.online.Load()
}

func (c *stubConn) Subscribe(func(online bool)) func() {
	return func() {}
}

func newTestEngine(t *testing.T, remote *fakeRemote, conn interfaces.Connectivity, opts ...engine.Option) (*engine.Engine, interfaces.Repository) {
	t.Helper()

	repo := memory.New()
	eng, err := engine.New(context.Background(), repo, remote, conn, opts...)
	gt.NoError(t, err).Required()
	t.Cleanup(eng.Close)
	return eng, repo
}

func createInput(entityType types.EntityType, payload model.Payload) engine.Input {
	return engine.Input{
		Kind:       types.ActionKindCreate,
		EntityType: entityType,
		Payload:    payload,
		Target: model.Target{
			Method: http.MethodPost,
			Path:   "/api/v1/" + entityType.String() + "s",
		},
	}
}

func createWithIDInput(entityType types.EntityType, entityID types.EntityID, payload model.Payload) engine.Input {
	in := createInput(entityType, payload)
	in.EntityID = entityID
	return in
}

func updateInput(entityType types.EntityType, entityID types.EntityID, payload model.Payload) engine.Input {
	return engine.Input{
		Kind:       types.ActionKindUpdate,
		EntityType: entityType,
		EntityID:   entityID,
		Payload:    payload,
		Target: model.Target{
			Method: http.MethodPatch,
			Path:   "/api/v1/" + entityType.String() + "s/" + entityID.String(),
		},
	}
}

func deleteInput(entityType types.EntityType, entityID types.EntityID) engine.Input {
	return engine.Input{
		Kind:       types.ActionKindDelete,
		EntityType: entityType,
		EntityID:   entityID,
		Target: model.Target{
			Method: http.MethodDelete,
			Path:   "/api/v1/" + entityType.String() + "s/" + entityID.String(),
		},
	}
}

// waitFor polls until the condition holds or the deadline expires
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached before deadline")
}
