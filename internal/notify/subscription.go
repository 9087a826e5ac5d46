package notify

import (
	"sync"

	"github.com/TemirB/moneyorder-sync/internal/domain"
)

// Subscription buffers events without bound so a slow reader never stalls
// the publisher.
type Subscription struct {
	C <-chan domain.Event

	out    chan domain.Event
	bridge *Bridge
	// drain makes the pump hand over queued events before C is closed.
	drain bool

	mu    sync.Mutex
	queue []domain.Event
	wake  chan struct{}
	done  chan struct{}
	once  sync.Once
}

func newSubscription(b *Bridge, drain bool) *Subscription {
	out := make(chan domain.Event)
	return &Subscription{
		C:      out,
		out:    out,
		bridge: b,
		drain:  drain,
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// Close unsubscribes. C is closed once the subscription has stopped;
// events still queued are discarded.
func (s *Subscription) Close() {
	s.bridge.remove(s)
	s.stop()
}

func (s *Subscription) stop() {
	s.once.Do(func() { close(s.done) })
}

func (s *Subscription) enqueue(ev domain.Event) {
	s.mu.Lock()
	s.queue = append(s.queue, ev)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Subscription) next() (domain.Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return domain.Event{}, false
	}
	ev := s.queue[0]
	s.queue[0] = domain.Event{}
	s.queue = s.queue[1:]
	return ev, true
}

func (s *Subscription) pump() {
	defer close(s.out)

	for {
		select {
		case <-s.done:
			if s.drain {
				for ev, ok := s.next(); ok; ev, ok = s.next() {
					s.out <- ev
				}
			}
			return
		case <-s.wake:
		}

		for ev, ok := s.next(); ok; ev, ok = s.next() {
			select {
			case s.out <- ev:
			case <-s.done:
				if s.drain {
					s.out <- ev
					for ev, ok := s.next(); ok; ev, ok = s.next() {
						s.out <- ev
					}
				}
				return
			}
		}
	}
}
