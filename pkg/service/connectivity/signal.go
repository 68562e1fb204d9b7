package connectivity

import (
	"sync"

	"github.com/hearthlist/relay/pkg/domain/interfaces"
)

// Signal is a manually driven connectivity signal. The embedding
// application (or a test) flips it when the platform reports a network
// change.
type Signal struct {
	mu       sync.Mutex
	online   bool
	nextID   int
	handlers map[int]func(online bool)
}

var _ interfaces.Connectivity = &Signal{}

// NewSignal creates a signal with the given initial state
func NewSignal(online bool) *Signal {
	return &Signal{
		online:   online,
		handlers: make(map[int]func(online bool)),
	}
}

// Online returns the current connectivity state
func (s *Signal) Online() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.online
}

// Set updates the state and notifies subscribers on a transition.
// Handlers run synchronously on the calling goroutine; setting the same
// state twice fires nothing.
func (s *Signal) Set(online bool) {
	s.mu.Lock()
	if s.online == online {
		s.mu.Unlock()
		return
	}
	s.online = online

	handlers := make([]func(online bool), 0, len(s.handlers))
	for _, h := range s.handlers {
		handlers = append(handlers, h)
	}
	s.mu.Unlock()

	for _, h := range handlers {
		h(online)
	}
}

// Subscribe registers a transition handler and returns its unsubscriber
func (s *Signal) Subscribe(handler func(online bool)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.handlers[id] = handler

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.handlers, id)
	}
}
