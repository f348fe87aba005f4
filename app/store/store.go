package store

import "sync"

// Listener is notified after every committed action, in dispatch order.
// Listeners run under the store lock and must not call Dispatch.
type Listener func(next State, a Action, intents []Intent)

// Store owns the current state. Dispatch is the only way to change it.
type Store struct {
	mu        sync.Mutex
	state     State
	reducer   Reducer
	listeners map[int]Listener
	order     []int
	nextID    int
}

// New creates a store seeded with initial
func New(initial State, reducer Reducer) *Store {
	return &Store{
		state:     initial,
		reducer:   reducer,
		listeners: make(map[int]Listener),
	}
}

// State returns the current snapshot
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Dispatch applies a to the current state. Actions are serialized: each one
// sees the state left by the previous one.
func (s *Store) Dispatch(a Action) (State, []Intent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, intents := s.reducer.Reduce(s.state, a)
	s.state = next
	for _, id := range s.order {
		s.listeners[id](next, a, intents)
	}
	return next, intents
}

// Subscribe registers fn and returns a func that removes it
func (s *Store) Subscribe(fn Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.order = append(s.order, id)

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
		for i, v := range s.order {
			if v == id {
				s.order = append(s.order[:i:i], s.order[i+1:]...)
				break
			}
		}
	}
}
