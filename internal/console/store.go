package console

import "sync"

// Listener is called with the state before and after each transition.
type Listener func(prev, next State)

type subscription struct {
	id int
	fn Listener
}

// Store serializes transitions over a single State.
type Store struct {
	mu        sync.Mutex
	state     State
	nextID    int
	listeners []subscription
}

func NewStore(initial State) *Store {
	return &Store{state: initial}
}

// State returns the current snapshot.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Dispatch applies a and returns the previous and the resulting state.
// Listeners run after the lock is released, in subscription order.
func (s *Store) Dispatch(a Action) (prev, next State) {
	s.mu.Lock()
	prev = s.state
	next = Reduce(prev, a)
	s.state = next
	listeners := make([]Listener, 0, len(s.listeners))
	for _, sub := range s.listeners {
		listeners = append(listeners, sub.fn)
	}
	s.mu.Unlock()

	for _, l := range listeners {
		l(prev, next)
	}
	return prev, next
}

// Subscribe registers l and returns a function that removes it. Calling the
// returned function more than once is a no-op.
func (s *Store) Subscribe(l Listener) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners = append(s.listeners, subscription{id: id, fn: l})
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.listeners {
			if sub.id == id {
				s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
				return
			}
		}
	}
}

func (s *Store) subscriberCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.listeners)
}
