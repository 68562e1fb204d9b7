package model

import (
	"net/http"
	"time"

	"github.com/hearthlist/relay/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
)

// DefaultMaxRetries is the retry budget applied when none is specified
const DefaultMaxRetries = 3

// Target describes the remote endpoint an action must be delivered to
type Target struct {
	Method string
	Path   string
	Header http.Header
}

// Clone creates a deep copy of the target
func (t Target) Clone() Target {
	cloned := Target{
		Method: t.Method,
		Path:   t.Path,
	}
	if t.Header != nil {
		cloned.Header = t.Header.Clone()
	}
	return cloned
}

// Validate checks if the target is deliverable
func (t Target) Validate() error {
	switch t.Method {
	case http.MethodPost, http.MethodPatch, http.MethodPut, http.MethodDelete:
	default:
		return goerr.New("invalid target method", goerr.V("method", t.Method))
	}
	if t.Path == "" {
		return goerr.New("target path is required")
	}
	return nil
}

// ActionRecord is a durable description of one pending client-side mutation.
// Records are immutable after enqueue except for RetryCount and State, and
// EntityID/Target which are rebound when a create resolves to a server ID.
type ActionRecord struct {
	ID         types.ActionID
	Kind       types.ActionKind
	EntityType types.EntityType
	EntityID   types.EntityID
	Payload    Payload
	Target     Target
	Seq        int64
	EnqueuedAt time.Time
	RetryCount int
	MaxRetries int
	State      types.ActionState
}

// Clone creates a deep copy of the action record
func (a *ActionRecord) Clone() *ActionRecord {
	return &ActionRecord{
		ID:         a.ID,
		Kind:       a.Kind,
		EntityType: a.EntityType,
		EntityID:   a.EntityID,
		Payload:    a.Payload.Clone(),
		Target:     a.Target.Clone(),
		Seq:        a.Seq,
		EnqueuedAt: a.EnqueuedAt,
		RetryCount: a.RetryCount,
		MaxRetries: a.MaxRetries,
		State:      a.State,
	}
}

// Validate checks if the action record is well-formed
func (a *ActionRecord) Validate() error {
	if err := a.ID.Validate(); err != nil {
		return goerr.Wrap(err, "invalid action ID")
	}
	if !a.Kind.IsValid() {
		return goerr.New("invalid action kind", goerr.V("kind", a.Kind))
	}
	if err := a.EntityType.Validate(); err != nil {
		return goerr.Wrap(err, "invalid entity type", goerr.V("action_id", a.ID))
	}
	if a.EntityID == "" {
		return goerr.New("entity ID is required", goerr.V("action_id", a.ID))
	}
	if err := a.Target.Validate(); err != nil {
		return goerr.Wrap(err, "invalid target", goerr.V("action_id", a.ID))
	}
	if a.MaxRetries < 0 {
		return goerr.New("max retries must not be negative", goerr.V("max_retries", a.MaxRetries))
	}
	return nil
}

// RetriesLeft reports whether the retry budget allows another delivery attempt
func (a *ActionRecord) RetriesLeft() bool {
	return a.RetryCount < a.MaxRetries
}

// Transition moves the record to the next delivery state, enforcing the
// allowed state machine.
func (a *ActionRecord) Transition(next types.ActionState) error {
	if !a.State.CanTransition(next) {
		return goerr.New("invalid action state transition",
			goerr.V("action_id", a.ID),
			goerr.V("from", a.State),
			goerr.V("to", next))
	}
	a.State = next
	return nil
}
