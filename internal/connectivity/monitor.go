package connectivity

import (
	"sync"

	"go.uber.org/zap"
)

// Monitor tracks whether the backend is reachable. It starts offline and
// notifies subscribers only when the state actually flips.
type Monitor struct {
	mu     sync.Mutex
	online bool
	nextID int
	subs   map[int]func(online bool)

	// notifyMu serialises callbacks so subscribers observe edges in order.
	notifyMu sync.Mutex
	logger   *zap.Logger
}

func NewMonitor(logger *zap.Logger) *Monitor {
	return &Monitor{
		subs:   make(map[int]func(bool)),
		logger: logger,
	}
}

func (m *Monitor) IsOnline() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// Subscribe registers fn for transition edges and returns a func removing it.
func (m *Monitor) Subscribe(fn func(online bool)) (unsubscribe func()) {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.subs[id] = fn
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs, id)
			m.mu.Unlock()
		})
	}
}

// Set records the observed state. Repeating the current state is a no-op.
func (m *Monitor) Set(online bool) {
	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()

	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return
	}
	m.online = online
	fns := make([]func(bool), 0, len(m.subs))
	for _, fn := range m.subs {
		fns = append(fns, fn)
	}
	m.mu.Unlock()

	m.logger.Info("Connectivity changed", zap.Bool("online", online))
	for _, fn := range fns {
		fn(online)
	}
}
