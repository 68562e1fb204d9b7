package model

// View is the optimistic read-time value of an entity: the last confirmed
// snapshot with all still-queued mutations folded on top.
type View struct {
	// Data is the folded entity value. Nil when Exists is false.
	Data Payload

	// Exists is false when the entity is unknown or deleted (tombstoned or
	// folded through a pending delete).
	Exists bool

	// Pending is true when at least one queued action contributed to the
	// value, i.e. the view is not yet server-confirmed.
	Pending bool
}
