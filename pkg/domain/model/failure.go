package model

import "time"

// TerminalFailure reports that an action's retry budget was exhausted and
// its effect is permanently lost client-side. Consumed by the UI layer to
// flag the affected entity for manual recovery.
type TerminalFailure struct {
	Action     *ActionRecord
	Attempts   int
	Cause      error
	OccurredAt time.Time
}
