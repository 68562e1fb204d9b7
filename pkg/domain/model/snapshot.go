package model

import (
	"time"

	"github.com/hearthlist/relay/pkg/domain/types"
)

// EntitySnapshot is the last server-confirmed representation of a domain
// object. A snapshot with Tombstone set records that the server deleted the
// entity, which is distinct from having no snapshot at all.
type EntitySnapshot struct {
	EntityType types.EntityType
	EntityID   types.EntityID
	Data       Payload
	Tombstone  bool
	UpdatedAt  time.Time
}

// Clone creates a deep copy of the snapshot
func (s *EntitySnapshot) Clone() *EntitySnapshot {
	return &EntitySnapshot{
		EntityType: s.EntityType,
		EntityID:   s.EntityID,
		Data:       s.Data.Clone(),
		Tombstone:  s.Tombstone,
		UpdatedAt:  s.UpdatedAt,
	}
}
