// Package refresh signals list and detail views that contract data changed.
//
// Notifications carry no payload and are not persisted. Every subscriber has
// its own delivery goroutine, so a slow handler never blocks the producer and
// each handler observes notifications in the order they were sent.
package refresh

import "sync"

type Notifier struct {
	mu          sync.Mutex
	nextID      uint64
	subscribers map[uint64]*subscriber
	closed      bool
}

type subscriber struct {
	handler func()

	mu      sync.Mutex
	pending int
	wake    chan struct{}
	done    chan struct{}
}

func NewNotifier() *Notifier {
	return &Notifier{subscribers: make(map[uint64]*subscriber)}
}

// Notify schedules one handler invocation for every current subscriber.
func (n *Notifier) Notify() {
	n.mu.Lock()
	subs := make([]*subscriber, 0, len(n.subscribers))
	for _, sub := range n.subscribers {
		subs = append(subs, sub)
	}
	n.mu.Unlock()

	for _, sub := range subs {
		sub.signal()
	}
}

// Subscribe registers handler and returns the function that unregisters it.
// Calling the returned function more than once is safe.
func (n *Notifier) Subscribe(handler func()) (unsubscribe func()) {
	sub := &subscriber{
		handler: handler,
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}

	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return func() {}
	}
	id := n.nextID
	n.nextID++
	n.subscribers[id] = sub
	n.mu.Unlock()

	go sub.run()

	var once sync.Once
	return func() {
		once.Do(func() {
			n.mu.Lock()
			_, registered := n.subscribers[id]
			delete(n.subscribers, id)
			n.mu.Unlock()
			if registered {
				close(sub.done)
			}
		})
	}
}

// Subscribers reports how many handlers are registered.
func (n *Notifier) Subscribers() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.subscribers)
}

// Close unregisters every subscriber. Later Subscribe calls are no-ops.
func (n *Notifier) Close() {
	n.mu.Lock()
	subs := n.subscribers
	n.subscribers = make(map[uint64]*subscriber)
	n.closed = true
	n.mu.Unlock()

	for _, sub := range subs {
		close(sub.done)
	}
}

func (s *subscriber) signal() {
	s.mu.Lock()
	s.pending++
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *subscriber) run() {
	for {
		select {
		case <-s.done:
			return
		case <-s.wake:
		}
		for {
			s.mu.Lock()
			if s.pending == 0 {
				s.mu.Unlock()
				break
			}
			s.pending--
			s.mu.Unlock()

			select {
			case <-s.done:
				return
			default:
			}
			s.handler()
		}
	}
}
