package model

import "errors"

// Sentinel errors for the delivery error taxonomy
var (
	// ErrPersistence means the durable store rejected a write. Surfaced
	// synchronously to the enqueue caller, never retried internally.
	ErrPersistence = errors.New("durable store rejected write")

	// ErrTransientDelivery means a delivery attempt failed for a reason
	// assumed recoverable (network loss, 5xx, timeout). Retried up to the
	// record's budget.
	ErrTransientDelivery = errors.New("transient delivery failure")

	// ErrTerminalDelivery means the retry budget is exhausted and the
	// action's effect is dropped client-side.
	ErrTerminalDelivery = errors.New("delivery retry budget exhausted")

	// ErrIDRebinding means a create response lacked the expected ID field,
	// so queued actions targeting the temporary ID cannot be rebound.
	ErrIDRebinding = errors.New("create response lacks entity ID")
)
