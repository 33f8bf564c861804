// Package signal is a small typed observer registry. Each component owns
// one Signal per event name, so the payload shape of every event is fixed
// by its type parameter.
package signal

// HandlerID identifies a connected handler
type HandlerID uint64

type handler[T any] struct {
	id      HandlerID
	fn      func(T)
	blocked int
}

// Signal holds the handlers of one event. The zero value is ready to use.
// It is not safe for concurrent use; signals are emitted on the loop.
type Signal[T any] struct {
	next     HandlerID
	handlers []*handler[T]
}

// Connect registers fn and returns an id for Disconnect/Block
func (s *Signal[T]) Connect(fn func(T)) HandlerID {
	s.next++
	s.handlers = append(s.handlers, &handler[T]{id: s.next, fn: fn})
	return s.next
}

// Disconnect removes a handler. It reports whether the id was connected.
func (s *Signal[T]) Disconnect(id HandlerID) bool {
	for i, h := range s.handlers {
		if h.id == id {
			s.handlers = append(s.handlers[:i:i], s.handlers[i+1:]...)
			return true
		}
	}
	return false
}

// Block suppresses a handler until the matching Unblock. Blocks nest.
func (s *Signal[T]) Block(id HandlerID) {
	if h := s.find(id); h != nil {
		h.blocked++
	}
}

// Unblock undoes one Block
func (s *Signal[T]) Unblock(id HandlerID) {
	if h := s.find(id); h != nil && h.blocked > 0 {
		h.blocked--
	}
}

// Emit calls every unblocked handler in connection order. Handlers
// disconnected by an earlier handler during the same emission are skipped.
func (s *Signal[T]) Emit(v T) {
	snapshot := make([]*handler[T], len(s.handlers))
	copy(snapshot, s.handlers)
	for _, h := range snapshot {
		if s.find(h.id) == nil || h.blocked > 0 {
			continue
		}
		h.fn(v)
	}
}

// Len returns the number of connected handlers
func (s *Signal[T]) Len() int {
	return len(s.handlers)
}

// DisconnectAll drops every handler
func (s *Signal[T]) DisconnectAll() {
	s.handlers = nil
}

func (s *Signal[T]) find(id HandlerID) *handler[T] {
	for _, h := range s.handlers {
		if h.id == id {
			return h
		}
	}
	return nil
}
