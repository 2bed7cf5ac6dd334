package titlelock

import (
	"context"
	"sync"
	"time"
)

// Manager serializes processing per logical title. Acquisition blocks until
// the title is free, waking waiters in arrival order.
type Manager struct {
	mu    sync.Mutex
	locks map[string]*lockState
}

type lockState struct {
	heldSince time.Time
	waiters   []chan struct{}
}

// Handle represents one held acquisition. Release is safe to call more than
// once; only the first call has effect.
type Handle struct {
	manager *Manager
	title   string
	once    sync.Once
}

func NewManager() *Manager {
	return &Manager{locks: make(map[string]*lockState)}
}

// Acquire blocks until the title's slot is free or ctx is done. On success
// the returned handle must be released on every exit path.
func (m *Manager) Acquire(ctx context.Context, title string) (*Handle, error) {
	m.mu.Lock()
	state, held := m.locks[title]
	if !held {
		m.locks[title] = &lockState{heldSince: time.Now()}
		m.mu.Unlock()
		return &Handle{manager: m, title: title}, nil
	}

	grant := make(chan struct{}, 1)
	state.waiters = append(state.waiters, grant)
	m.mu.Unlock()

	select {
	case <-grant:
		return &Handle{manager: m, title: title}, nil
	case <-ctx.Done():
		if m.abandonWaiter(title, grant) {
			return nil, ctx.Err()
		}
		// The grant raced the cancellation; ownership arrived and must be
		// handed to the next waiter.
		m.release(title)
		return nil, ctx.Err()
	}
}

// Release frees the title slot exactly once.
func (h *Handle) Release() {
	h.once.Do(func() {
		h.manager.release(h.title)
	})
}

// Title returns the locked title name.
func (h *Handle) Title() string { return h.title }

func (m *Manager) release(title string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.locks[title]
	if !ok {
		return
	}
	if len(state.waiters) == 0 {
		delete(m.locks, title)
		return
	}
	next := state.waiters[0]
	state.waiters = state.waiters[1:]
	state.heldSince = time.Now()
	next <- struct{}{}
}

// abandonWaiter removes grant from the title's wait queue. It reports false
// when the grant was already delivered.
func (m *Manager) abandonWaiter(title string, grant chan struct{}) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.locks[title]
	if !ok {
		return len(grant) == 0
	}
	for i, w := range state.waiters {
		if w == grant {
			state.waiters = append(state.waiters[:i], state.waiters[i+1:]...)
			return true
		}
	}
	return len(grant) == 0
}

// Waiters reports how many tasks are queued behind the current holder.
func (m *Manager) Waiters(title string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if state, ok := m.locks[title]; ok {
		return len(state.waiters)
	}
	return 0
}

// HeldSince reports when the current holder acquired the title, if held.
func (m *Manager) HeldSince(title string) (time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if state, ok := m.locks[title]; ok {
		return state.heldSince, true
	}
	return time.Time{}, false
}
