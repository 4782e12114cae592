package memory

import "sync"

// outingLocks hands out one mutex per outing id. Entries are reference counted
// and dropped when the last holder unlocks, so idle outings cost nothing.
type outingLocks struct {
	mu    sync.Mutex
	locks map[string]*outingLock
}

type outingLock struct {
	mu   sync.Mutex
	refs int
}

func newOutingLocks() *outingLocks {
	return &outingLocks{locks: make(map[string]*outingLock)}
}

// lock blocks until the caller holds the mutex for outingID and returns its release func.
func (l *outingLocks) lock(outingID string) func() {
	l.mu.Lock()
	ol, ok := l.locks[outingID]
	if !ok {
		ol = &outingLock{}
		l.locks[outingID] = ol
	}
	ol.refs++
	l.mu.Unlock()

	ol.mu.Lock()
	return func() {
		ol.mu.Unlock()
		l.mu.Lock()
		ol.refs--
		if ol.refs == 0 {
			delete(l.locks, outingID)
		}
		l.mu.Unlock()
	}
}
