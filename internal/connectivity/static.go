package connectivity

import "sync"

// Static is a hand-driven Signal for tests and tooling.
type Static struct {
	mu          sync.Mutex
	online      bool
	subscribers []chan Event
}

// NewStatic returns a Static signal with the given initial state.
func NewStatic(online bool) *Static {
	return &Static{online: online}
}

// Online reports the current state.
func (s *Static) Online() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.online
}

// SetOnline flips the state and emits a transition event when it changes.
func (s *Static) SetOnline(online bool) {
	s.mu.Lock()
	if s.online == online {
		s.mu.Unlock()
		return
	}
	s.online = online
	subscribers := append([]chan Event(nil), s.subscribers...)
	s.mu.Unlock()

	for _, ch := range subscribers {
		select {
		case ch <- Event{Online: online}:
		default:
		}
	}
}

// Subscribe registers for transition events.
func (s *Static) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 4)
	s.mu.Lock()
	s.subscribers = append(s.subscribers, ch)
	s.mu.Unlock()
	return ch, func() {}
}
