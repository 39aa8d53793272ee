package session

import "sync"

// Handler receives a named session event. Handlers run on the emitting
// goroutine and must be cheap; long work belongs behind the observer's own
// queue.
type Handler func(name string, payload any)

// eventSink is the append-only observer registry behind State.SendEvent.
// Registration never removes: observers live as long as the session.
type eventSink struct {
	mu       sync.RWMutex
	byName   map[string][]Handler
	catchAll []Handler
}

func newEventSink() *eventSink {
	return &eventSink{byName: make(map[string][]Handler)}
}

// On registers a handler for one event name.
func (s *State) On(name string, h Handler) {
	s.sink.mu.Lock()
	defer s.sink.mu.Unlock()
	s.sink.byName[name] = append(s.sink.byName[name], h)
}

// OnAny registers a handler for every event.
func (s *State) OnAny(h Handler) {
	s.sink.mu.Lock()
	defer s.sink.mu.Unlock()
	s.sink.catchAll = append(s.sink.catchAll, h)
}

// SendEvent fans the event out to registered observers. It never blocks on
// the session lock, and a panicking observer never propagates past the
// caller: notification is best-effort by contract.
func (s *State) SendEvent(name string, payload any) {
	s.sink.mu.RLock()
	handlers := make([]Handler, 0, len(s.sink.byName[name])+len(s.sink.catchAll))
	handlers = append(handlers, s.sink.byName[name]...)
	handlers = append(handlers, s.sink.catchAll...)
	s.sink.mu.RUnlock()

	for _, h := range handlers {
		safeCall(h, name, payload)
	}
}

func safeCall(h Handler, name string, payload any) {
	defer func() {
		_ = recover()
	}()
	h(name, payload)
}
