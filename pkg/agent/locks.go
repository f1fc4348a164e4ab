package agent

import "sync"

// sessionLocks serializes turns per chat session. Different sessions run
// concurrently; two turns for the same session never interleave.
type sessionLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newSessionLocks() *sessionLocks {
	return &sessionLocks{
		locks: make(map[string]*sync.Mutex),
	}
}

func (l *sessionLocks) acquire(sessionID string) func() {
	l.mu.Lock()
	lock, ok := l.locks[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[sessionID] = lock
	}
	l.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
