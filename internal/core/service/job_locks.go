package service

import "sync"

// jobLocks hands out one mutex per job id. Entries are reference counted and
// dropped once no caller holds or waits on them, so the map only grows with
// the number of jobs being accepted concurrently.
type jobLocks struct {
	mu    sync.Mutex
	locks map[int64]*jobLock
}

type jobLock struct {
	mu   sync.Mutex
	refs int
}

func newJobLocks() *jobLocks {
	return &jobLocks{locks: make(map[int64]*jobLock)}
}

// Lock blocks until the caller owns jobID and returns the release func.
func (l *jobLocks) Lock(jobID int64) (unlock func()) {
	l.mu.Lock()
	jl, ok := l.locks[jobID]
	if !ok {
		jl = &jobLock{}
		l.locks[jobID] = jl
	}
	jl.refs++
	l.mu.Unlock()

	jl.mu.Lock()
	return func() {
		jl.mu.Unlock()

		l.mu.Lock()
		jl.refs--
		if jl.refs == 0 {
			delete(l.locks, jobID)
		}
		l.mu.Unlock()
	}
}

func (l *jobLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
