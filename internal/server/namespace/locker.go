package namespace

import "sync"

// Locker provides per-username mutual exclusion. Rebuild and purge take the
// write lock for their whole duration; queries and ingests take the read
// lock so they never observe a region mid-destroy-and-rebuild. Locks for
// different users are independent.
type Locker struct {
	mu    sync.Mutex
	locks map[string]*sync.RWMutex
}

func NewLocker() *Locker {
	return &Locker{locks: make(map[string]*sync.RWMutex)}
}

func (l *Locker) get(username string) *sync.RWMutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, ok := l.locks[username]
	if !ok {
		m = &sync.RWMutex{}
		l.locks[username] = m
	}
	return m
}

// Lock acquires the exclusive lock for username and returns the unlock func.
func (l *Locker) Lock(username string) func() {
	m := l.get(username)
	m.Lock()
	return m.Unlock
}

// RLock acquires the shared lock for username and returns the unlock func.
func (l *Locker) RLock(username string) func() {
	m := l.get(username)
	m.RLock()
	return m.RUnlock
}
