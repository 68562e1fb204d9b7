package types

import (
	"strings"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
)

// ActionID is the unique identifier of a queued action, assigned at enqueue time
type ActionID string

// NewActionID generates a new random action ID
func NewActionID() ActionID {
	return ActionID(uuid.NewString())
}

// String returns the string representation of the action ID
func (id ActionID) String() string {
	return string(id)
}

// Validate checks if the action ID is non-empty
func (id ActionID) Validate() error {
	if id == "" {
		return goerr.New("action ID is empty")
	}
	return nil
}

// EntityType is the kind of domain object an action affects (task, list, folder, ...)
type EntityType string

// String returns the string representation of the entity type
func (t EntityType) String() string {
	return string(t)
}

// Validate checks if the entity type is non-empty
func (t EntityType) Validate() error {
	if t == "" {
		return goerr.New("entity type is empty")
	}
	return nil
}

// tempIDPrefix marks client-generated entity IDs that have not been
// confirmed by the server yet.
const tempIDPrefix = "temp-"

// EntityID identifies the affected entity. It may be a temporary
// client-generated value until the server assigns a real one.
type EntityID string

// NewTemporaryEntityID generates a client-side placeholder ID for a
// not-yet-created entity.
func NewTemporaryEntityID() EntityID {
	return EntityID(tempIDPrefix + uuid.NewString())
}

// String returns the string representation of the entity ID
func (id EntityID) String() string {
	return string(id)
}

// IsTemporary reports whether the ID is a client-generated placeholder
func (id EntityID) IsTemporary() bool {
	return strings.HasPrefix(string(id), tempIDPrefix)
}
