package sync

import (
	"context"
	"sync"
)

type fifoWaiter struct {
	ready   chan struct{}
	removed bool
}

// FIFOMutex is a mutual exclusion lock whose waiters are granted the lock
// in arrival order. Lock is context-aware: a cancelled waiter is removed
// from the queue and unlocking skips over it.
//
// The zero value is an unlocked mutex.
type FIFOMutex struct {
	mu      sync.Mutex
	locked  bool
	waiters []*fifoWaiter
}

// TryLock acquires the lock if it is free and no one is queued ahead,
// reporting whether it succeeded.
func (m *FIFOMutex) TryLock() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.locked || len(m.waiters) > 0 {
		return false
	}

	m.locked = true
	return true
}

// Lock acquires the lock, blocking in FIFO order behind earlier waiters.
// If ctx is cancelled while waiting, the waiter is dequeued and ctx.Err()
// is returned. The caller must Unlock after a nil return.
func (m *FIFOMutex) Lock(ctx context.Context) error {
	m.mu.Lock()
	if !m.locked && len(m.waiters) == 0 {
		m.locked = true
		m.mu.Unlock()
		return nil
	}

	w := &fifoWaiter{ready: make(chan struct{})}
	m.waiters = append(m.waiters, w)
	m.mu.Unlock()

	select {
	case <-w.ready:
		return nil
	case <-ctx.Done():
	}

	m.mu.Lock()
	select {
	case <-w.ready:
		// The lock was handed over while cancellation raced it. Give it
		// up so the next waiter is not starved.
		m.unlockLocked()
		m.mu.Unlock()
	default:
		w.removed = true
		m.mu.Unlock()
	}

	return ctx.Err()
}

// Unlock releases the lock, handing it to the oldest waiter still in the
// queue.
func (m *FIFOMutex) Unlock() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unlockLocked()
}

func (m *FIFOMutex) unlockLocked() {
	for len(m.waiters) > 0 {
		w := m.waiters[0]
		m.waiters = m.waiters[1:]
		if w.removed {
			continue
		}

		// Ownership transfers to the waiter, the lock stays held.
		close(w.ready)
		return
	}

	m.locked = false
}
