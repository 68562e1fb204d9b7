package interfaces

// Connectivity reports whether the remote service is reachable and
// notifies subscribers of online/offline transitions.
type Connectivity interface {
	// Online returns the current connectivity state
	Online() bool

	// Subscribe registers a handler invoked on every transition. The
	// returned function unregisters the handler.
	Subscribe(handler func(online bool)) (unsubscribe func())
}
