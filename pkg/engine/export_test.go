package engine

// Syncing exposes the single-flight guard state for tests
func (e *Engine) Syncing() bool {
	return e.syncing.Load()
}
